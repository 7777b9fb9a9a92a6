package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediminds/internal/docstore"
	"mediminds/internal/reminders"
	"mediminds/internal/services"
	"mediminds/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecorder struct {
	mu  sync.Mutex
	got []models.Reminder
	err error
}

func (f *fakeRecorder) RecordReminder(ctx context.Context, userID string, r models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, r)
	return f.err
}

type fakePublisher struct {
	mu    sync.Mutex
	users []string
	got   []models.Reminder
}

func (f *fakePublisher) PublishReminder(userID string, r models.Reminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	f.got = append(f.got, r)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	store     *docstore.MemoryStore
	svc       Services
	manager   *Manager
	recorder  *fakeRecorder
	publisher *fakePublisher
	clock     *clock
}

var caregiver = models.Caregiver{UserID: "user-1", Email: "rahul@example.com"}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	svc := Services{
		Elders:        services.NewElderService(store),
		Medicines:     services.NewMedicineService(store),
		Vitals:        services.NewVitalService(store),
		Prescriptions: services.NewPrescriptionService(store),
		CarePlan:      services.NewCarePlanService(store),
		Appointments:  services.NewAppointmentService(store),
	}
	f := &fixture{
		store:     store,
		svc:       svc,
		recorder:  &fakeRecorder{},
		publisher: &fakePublisher{},
		clock:     &clock{now: time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)},
	}
	f.manager = NewManager(svc, Options{
		Location:  time.UTC,
		Recorder:  f.recorder,
		Publisher: f.publisher,
		Now:       f.clock.Now,
	}, zap.NewNop())
	return f
}

func (f *fixture) session(t *testing.T) *Session {
	t.Helper()
	s, err := f.manager.Get(context.Background(), caregiver)
	require.NoError(t, err)
	return s
}

func (f *fixture) elder(t *testing.T, s *Session) models.Elder {
	t.Helper()
	e, err := s.AddElder(context.Background(), models.Elder{Name: "Kamala", Age: 78, Relation: "Mother"})
	require.NoError(t, err)
	return e
}

type fakeRestorer struct {
	got      []models.Reminder
	err      error
	from, to time.Time
}

func (f *fakeRestorer) RestoreReminders(ctx context.Context, userID string, from, to time.Time) ([]models.Reminder, error) {
	f.from, f.to = from, to
	return f.got, f.err
}

func TestLoad_RestoresRecordedStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.Elders.Add(ctx, models.Elder{UserID: caregiver.UserID, Name: "Kamala"})
	require.NoError(t, err)
	m, err := f.svc.Medicines.Add(ctx, models.Medicine{ElderID: e.ID, Name: "Amlodipine", Times: []string{"06:00", "20:00"}})
	require.NoError(t, err)

	six := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	takenAt := six.Add(10 * time.Minute)
	taken := models.Reminder{
		ID: reminders.ReminderID(m.ID, 0, six), MedicineID: m.ID, ElderID: e.ID,
		ScheduledTime: six, Status: models.StatusTaken, TakenAt: &takenAt,
		SMSStatus: models.ChannelSent, VoiceStatus: models.ChannelSent,
	}
	gone := models.Reminder{ID: "rem-deleted-0-20240310-0900", MedicineID: "deleted", Status: models.StatusMissed}
	restorer := &fakeRestorer{got: []models.Reminder{taken, gone}}

	s := New(caregiver, f.svc, Options{Location: time.UTC, Restorer: restorer, Now: f.clock.Now}, zap.NewNop())
	require.NoError(t, s.Load(ctx))

	today := s.TodaysReminders()
	require.Len(t, today, 2)
	assert.Equal(t, models.StatusTaken, today[0].Status)
	assert.Equal(t, &takenAt, today[0].TakenAt)
	assert.Equal(t, models.StatusScheduled, today[1].Status)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), restorer.from)
}

func TestLoad_RestoreFailureKeepsDerivedReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.Elders.Add(ctx, models.Elder{UserID: caregiver.UserID, Name: "Kamala"})
	require.NoError(t, err)
	_, err = f.svc.Medicines.Add(ctx, models.Medicine{ElderID: e.ID, Name: "Amlodipine", Times: []string{"08:00"}})
	require.NoError(t, err)

	s := New(caregiver, f.svc, Options{
		Location: time.UTC,
		Restorer: &fakeRestorer{err: errors.New("db down")},
		Now:      f.clock.Now,
	}, zap.NewNop())
	require.NoError(t, s.Load(ctx))
	require.Len(t, s.TodaysReminders(), 1)
	assert.Equal(t, models.StatusScheduled, s.TodaysReminders()[0].Status)
}

func TestLoad_DerivesTodaysReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.Elders.Add(ctx, models.Elder{UserID: caregiver.UserID, Name: "Kamala"})
	require.NoError(t, err)
	_, err = f.svc.Medicines.Add(ctx, models.Medicine{ElderID: e.ID, Name: "Amlodipine", Times: []string{"08:00", "20:00"}})
	require.NoError(t, err)
	_, err = f.svc.Elders.Add(ctx, models.Elder{UserID: "someone-else", Name: "Other"})
	require.NoError(t, err)

	s := f.session(t)
	require.Len(t, s.Elders(), 1)

	today := s.TodaysReminders()
	require.Len(t, today, 2)
	assert.Equal(t, "08:00", today[0].ScheduledTime.Format("15:04"))
	assert.Equal(t, "20:00", today[1].ScheduledTime.Format("15:04"))
	assert.Equal(t, models.StatusScheduled, today[0].Status)
}

func TestManager_ReusesSession(t *testing.T) {
	f := newFixture(t)
	a := f.session(t)
	b := f.session(t)
	assert.Same(t, a, b)
	assert.Equal(t, 1, f.manager.Count())

	f.manager.Drop(caregiver.UserID)
	assert.Equal(t, 0, f.manager.Count())
}

func TestAddMedicine_CreatesOneReminderPerTime(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	e := f.elder(t, s)

	m, err := s.AddMedicine(context.Background(), models.Medicine{
		ElderID: e.ID, Name: "Metformin", Dosage: "500mg", Times: []string{"08:00", "14:00", "20:00"},
	})
	require.NoError(t, err)

	rems := s.RemindersForElder(e.ID)
	require.Len(t, rems, 3)
	for i, r := range rems {
		assert.Equal(t, m.ID, r.MedicineID)
		assert.Equal(t, reminders.ReminderID(m.ID, i, r.ScheduledTime), r.ID)
		assert.Equal(t, models.StatusScheduled, r.Status)
	}

	_, err = s.AddMedicine(context.Background(), models.Medicine{ElderID: e.ID, Name: "Empty"})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestAddMedicine_RejectsForeignElder(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	_, err := s.AddMedicine(context.Background(), models.Medicine{ElderID: "not-mine", Name: "X", Times: []string{"08:00"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReminderStatus_TakenRecordsAndPublishes(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	e := f.elder(t, s)
	_, err := s.AddMedicine(context.Background(), models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"08:00"}})
	require.NoError(t, err)

	rem := s.TodaysReminders()[0]
	f.clock.Set(rem.ScheduledTime.Add(5 * time.Minute))

	got, err := s.UpdateReminderStatus(context.Background(), rem.ID, models.StatusTaken)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTaken, got.Status)
	require.NotNil(t, got.TakenAt)
	assert.Equal(t, f.clock.Now(), *got.TakenAt)
	assert.Equal(t, models.ChannelSent, got.SMSStatus)
	assert.Equal(t, models.ChannelSent, got.VoiceStatus)

	stored, ok := s.Reminder(rem.ID)
	require.True(t, ok)
	assert.Equal(t, got, stored)

	require.Len(t, f.recorder.got, 1)
	require.Len(t, f.publisher.got, 1)
	assert.Equal(t, caregiver.UserID, f.publisher.users[0])

	_, err = s.SnoozeReminder(context.Background(), rem.ID)
	assert.ErrorIs(t, err, reminders.ErrInvalidTransition)

	_, err = s.UpdateReminderStatus(context.Background(), "missing", models.StatusTaken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnoozeReminder_AdvancesThirtyMinutes(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	e := f.elder(t, s)
	_, err := s.AddMedicine(context.Background(), models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"08:00"}})
	require.NoError(t, err)

	rem := s.TodaysReminders()[0]
	got, err := s.SnoozeReminder(context.Background(), rem.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSnoozed, got.Status)
	assert.Equal(t, rem.ScheduledTime.Add(30*time.Minute), got.ScheduledTime)
	assert.Nil(t, got.TakenAt)
	assert.Equal(t, models.ChannelPending, got.SMSStatus)
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.recorder.err = errors.New("db down")
	s := f.session(t)
	e := f.elder(t, s)
	_, err := s.AddMedicine(context.Background(), models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"08:00"}})
	require.NoError(t, err)

	_, err = s.MarkReminderMissed(context.Background(), s.TodaysReminders()[0].ID)
	assert.NoError(t, err)
}

func TestDeleteMedicine_RemovesItsReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)

	keep, err := s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Keep", Times: []string{"09:00"}})
	require.NoError(t, err)
	drop, err := s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Drop", Times: []string{"08:00", "20:00"}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteMedicine(ctx, drop.ID))

	meds := s.MedicinesForElder(e.ID)
	require.Len(t, meds, 1)
	assert.Equal(t, keep.ID, meds[0].ID)
	for _, r := range s.RemindersForElder(e.ID) {
		assert.NotEqual(t, drop.ID, r.MedicineID)
	}
	assert.Len(t, s.RemindersForElder(e.ID), 1)

	stored, err := f.svc.Medicines.ListByElder(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	assert.ErrorIs(t, s.DeleteMedicine(ctx, drop.ID), ErrNotFound)
}

func TestUpdateMedicine_RegeneratesFutureReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)

	m, err := s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Insulin", Times: []string{"06:00", "18:00"}})
	require.NoError(t, err)

	// 06:00 has passed at the fixture's 07:00.
	m.Times = []string{"06:00", "12:00", "22:00"}
	m.Frequency = "Thrice a day"
	_, err = s.UpdateMedicine(ctx, m)
	require.NoError(t, err)

	var times []string
	for _, r := range s.RemindersForElder(e.ID) {
		times = append(times, r.ScheduledTime.Format("15:04"))
	}
	assert.Equal(t, []string{"06:00", "12:00", "22:00"}, times)

	notes := m
	notes.Notes = "Keep refrigerated"
	_, err = s.UpdateMedicine(ctx, notes)
	require.NoError(t, err)
	assert.Len(t, s.RemindersForElder(e.ID), 3)

	_, err = s.UpdateMedicine(ctx, models.Medicine{ID: "missing", Name: "x", Times: []string{"08:00"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteElder_CascadesAndLeavesEmptyLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)

	_, err := s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"08:00"}})
	require.NoError(t, err)
	_, err = s.AddVital(ctx, models.Vital{ElderID: e.ID, Type: models.VitalBP, Value: "130/85", Unit: "mmHg"})
	require.NoError(t, err)
	_, err = s.AddPrescription(ctx, models.Prescription{ElderID: e.ID, DoctorName: "Dr. Mehta"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteElder(ctx, e.ID))

	assert.Empty(t, s.Elders())
	assert.Empty(t, s.MedicinesForElder(e.ID))
	assert.Empty(t, s.RemindersForElder(e.ID))
	assert.Empty(t, s.VitalsForElder(e.ID))
	assert.Empty(t, s.TodaysReminders())

	meds, err := f.svc.Medicines.ListByElder(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, meds)
	rx, err := f.svc.Prescriptions.ListByElder(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, rx)
	events, err := f.svc.CarePlan.ListByElder(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.ErrorIs(t, s.DeleteElder(ctx, e.ID), ErrNotFound)
}

// failingStore rejects deletes in one collection.
type failingStore struct {
	*docstore.MemoryStore
	failDeletesIn string
}

func (f *failingStore) Delete(ctx context.Context, collection, id string) error {
	if collection == f.failDeletesIn {
		return errors.New("deadline exceeded")
	}
	return f.MemoryStore.Delete(ctx, collection, id)
}

func TestDeleteElder_PartialFailureReloadsSession(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: docstore.NewMemoryStore(), failDeletesIn: services.CollectionVitals}
	svc := Services{
		Elders:        services.NewElderService(store),
		Medicines:     services.NewMedicineService(store),
		Vitals:        services.NewVitalService(store),
		Prescriptions: services.NewPrescriptionService(store),
		CarePlan:      services.NewCarePlanService(store),
		Appointments:  services.NewAppointmentService(store),
	}
	now := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	s := New(caregiver, svc, Options{Location: time.UTC, Now: func() time.Time { return now }}, zap.NewNop())
	require.NoError(t, s.Load(ctx))

	e, err := s.AddElder(ctx, models.Elder{Name: "Kamala"})
	require.NoError(t, err)
	_, err = s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"08:00"}})
	require.NoError(t, err)
	_, err = s.AddVital(ctx, models.Vital{ElderID: e.ID, Type: models.VitalBP, Value: "130/85"})
	require.NoError(t, err)

	err = s.DeleteElder(ctx, e.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline exceeded")

	// the medicine is already gone from the store, the rest is still there
	require.Len(t, s.Elders(), 1)
	assert.Empty(t, s.MedicinesForElder(e.ID))
	assert.Empty(t, s.RemindersForElder(e.ID))
	assert.Len(t, s.VitalsForElder(e.ID), 1)
}

func TestVitals_AddDeleteOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)

	later, err := s.AddVital(ctx, models.Vital{ElderID: e.ID, Type: models.VitalSugar, Value: "140", RecordedAt: time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = s.AddVital(ctx, models.Vital{ElderID: e.ID, Type: models.VitalSugar, Value: "120", RecordedAt: time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	vitals := s.VitalsForElder(e.ID)
	require.Len(t, vitals, 2)
	assert.Equal(t, "120", vitals[0].Value)

	require.NoError(t, s.DeleteVital(ctx, later.ID))
	assert.Len(t, s.VitalsForElder(e.ID), 1)
	assert.ErrorIs(t, s.DeleteVital(ctx, later.ID), ErrNotFound)
}

func TestAddPrescription_AppendsTimelineEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)

	name := "Amoxicillin"
	_, err := s.AddPrescription(ctx, models.Prescription{ElderID: e.ID, DoctorName: "Dr. Mehta", Date: "2024-03-09", Medicines: []models.ParsedMedicine{{Name: &name}}})
	require.NoError(t, err)
	_, err = s.AddCarePlanEvent(ctx, models.CarePlanEvent{ElderID: e.ID, Type: models.EventNote, Title: "Follow-up", Date: "2024-03-10"})
	require.NoError(t, err)

	assert.Len(t, s.PrescriptionsForElder(e.ID), 1)
	events := s.CarePlanEventsForElder(e.ID)
	require.Len(t, events, 2)
	assert.Equal(t, "Follow-up", events[0].Title)
	assert.Equal(t, models.EventPrescription, events[1].Type)
	assert.Equal(t, "Prescription from Dr. Mehta", events[1].Title)
	assert.Equal(t, "Amoxicillin", events[1].Description)
}

func TestImportPrescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)

	str := func(v string) *string { return &v }
	rx, meds, err := s.ImportPrescription(ctx, e.ID, ImportRequest{
		DoctorName: "Dr. Rao",
		Medicines: []ImportedMedicine{
			{ParsedMedicine: models.ParsedMedicine{Name: str("Dolo 650"), Dosage: str("650mg"), Frequency: str("Twice daily"), Timing: str("After food"), Duration: str("3 days")}},
			{ParsedMedicine: models.ParsedMedicine{Name: str("Pantoprazole"), Timing: str("Before breakfast")}, Times: []string{"07:30"}},
			{ParsedMedicine: models.ParsedMedicine{Dosage: str("5ml")}},
		},
	})
	require.NoError(t, err)
	assert.True(t, rx.AIParsed)
	assert.Len(t, rx.Medicines, 3)
	require.Len(t, meds, 2)

	assert.Equal(t, []string{"08:00", "20:00"}, meds[0].Times)
	assert.Equal(t, models.MealAfter, meds[0].MealTiming)
	assert.Equal(t, []string{"07:30"}, meds[1].Times)
	assert.Equal(t, models.MealBefore, meds[1].MealTiming)
	assert.Len(t, s.RemindersForElder(e.ID), 3)

	_, _, err = s.ImportPrescription(ctx, e.ID, ImportRequest{
		Medicines: []ImportedMedicine{{ParsedMedicine: models.ParsedMedicine{Name: str("Bad")}, Times: []string{"noon"}}},
	})
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Len(t, s.PrescriptionsForElder(e.ID), 1, "nothing written on validation failure")
}

func TestDefaultTimes(t *testing.T) {
	assert.Equal(t, []string{"08:00"}, DefaultTimes("Once a day"))
	assert.Equal(t, []string{"08:00", "20:00"}, DefaultTimes("1 tablet twice daily"))
	assert.Equal(t, []string{"08:00", "14:00", "20:00"}, DefaultTimes("TDS"))
	assert.Equal(t, []string{"08:00", "12:00", "16:00", "20:00"}, DefaultTimes("four times a day"))
	assert.Equal(t, []string{"21:00"}, DefaultTimes("At night"))
	assert.Equal(t, []string{"08:00"}, DefaultTimes(""))
}

func TestRollover_DerivesNextDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)
	_, err := s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"08:00"}})
	require.NoError(t, err)

	assert.False(t, s.Rollover(f.clock.Now().Add(time.Hour)))

	next := time.Date(2024, 3, 11, 0, 1, 0, 0, time.UTC)
	f.clock.Set(next)
	assert.True(t, s.Rollover(next))

	today := s.TodaysReminders()
	require.Len(t, today, 1)
	assert.Equal(t, "2024-03-11", today[0].ScheduledTime.Format(models.DateLayout))
	assert.Len(t, s.RemindersForElder(e.ID), 1)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)
	_, err := s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"08:00", "14:00", "20:00"}})
	require.NoError(t, err)

	today := s.TodaysReminders()
	_, err = s.UpdateReminderStatus(ctx, today[0].ID, models.StatusTaken)
	require.NoError(t, err)
	_, err = s.MarkReminderMissed(ctx, today[1].ID)
	require.NoError(t, err)

	sum := s.Summary(e.ID)
	assert.Equal(t, 3, sum.TotalDoses)
	assert.Equal(t, 1, sum.TakenDoses)
	assert.Equal(t, 1, sum.MissedDoses)
	assert.InDelta(t, 50.0, sum.AdherenceRate, 0.001)
	assert.Equal(t, 1, sum.ActiveMedicine)
	assert.Contains(t, sum.Concerns, "1 missed dose(s) today")
	assert.Contains(t, sum.Concerns, "No vitals recorded yet")
}

func TestDueAndOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)
	e := f.elder(t, s)
	_, err := s.AddMedicine(ctx, models.Medicine{ElderID: e.ID, Name: "Dolo", Times: []string{"06:00", "08:00"}})
	require.NoError(t, err)

	now := f.clock.Now()
	due := s.DueReminders(now)
	require.Len(t, due, 1)
	assert.Equal(t, "06:00", due[0].ScheduledTime.Format("15:04"))

	overdue := s.OverdueReminders(now, 30*time.Minute)
	require.Len(t, overdue, 1)
	assert.Empty(t, s.OverdueReminders(now, 0))
}
