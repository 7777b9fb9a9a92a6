package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mediminds/internal/docstore"
	"mediminds/internal/services"
	"mediminds/internal/session"
	"mediminds/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingWorker struct {
	runs int32
	err  error
}

func (w *countingWorker) Name() string            { return "counter" }
func (w *countingWorker) Interval() time.Duration { return time.Hour }
func (w *countingWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&w.runs, 1)
	return w.err
}

func TestWorkerManager_RunsImmediatelyAndStops(t *testing.T) {
	wm := NewWorkerManager(zap.NewNop())
	ok := &countingWorker{}
	failing := &countingWorker{err: errors.New("boom")}
	wm.RegisterWorker(ok)
	wm.RegisterWorker(failing)

	wm.Start()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ok.runs) == 1 && atomic.LoadInt32(&failing.runs) == 1
	}, time.Second, 5*time.Millisecond)

	wm.Stop()
	wm.Stop()

	stats := wm.GetStats()
	assert.Equal(t, 2, stats.TotalWorkers)
	assert.Equal(t, []string{"counter", "counter"}, stats.WorkerNames)
}

func TestDayRolloverWorker(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := session.Services{
		Elders:        services.NewElderService(store),
		Medicines:     services.NewMedicineService(store),
		Vitals:        services.NewVitalService(store),
		Prescriptions: services.NewPrescriptionService(store),
		CarePlan:      services.NewCarePlanService(store),
		Appointments:  services.NewAppointmentService(store),
	}
	day1 := time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	manager := session.NewManager(svc, session.Options{
		Location: time.UTC,
		Now:      func() time.Time { return day1 },
	}, zap.NewNop())

	ctx := context.Background()
	sess, err := manager.Get(ctx, models.Caregiver{UserID: "user-1"})
	require.NoError(t, err)
	elder, err := sess.AddElder(ctx, models.Elder{Name: "Kamala"})
	require.NoError(t, err)
	_, err = sess.AddMedicine(ctx, models.Medicine{ElderID: elder.ID, Name: "Dolo", Times: []string{"08:00"}})
	require.NoError(t, err)

	w := NewDayRolloverWorker(manager, time.Minute, zap.NewNop())
	w.now = func() time.Time { return day1.Add(time.Hour) }
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, "2024-03-10", sess.Day().Format(models.DateLayout))

	w.now = func() time.Time { return day1.Add(3 * time.Hour) }
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, "2024-03-11", sess.Day().Format(models.DateLayout))
	require.Len(t, sess.TodaysReminders(), 1)
	assert.Equal(t, models.StatusScheduled, sess.TodaysReminders()[0].Status)
}
