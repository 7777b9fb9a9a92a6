package services

import (
	"context"
	"testing"

	"mediminds/internal/docstore"
	"mediminds/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElderService_RequiresUserID(t *testing.T) {
	svc := NewElderService(docstore.NewMemoryStore())

	_, err := svc.Add(context.Background(), models.Elder{Name: "Asha"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ListByUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestElderService_ScopedByCaregiver(t *testing.T) {
	ctx := context.Background()
	svc := NewElderService(docstore.NewMemoryStore())

	asha, err := svc.Add(ctx, models.Elder{UserID: "u1", Name: " Asha ", Conditions: []string{"Diabetes"}})
	require.NoError(t, err)
	_, err = svc.Add(ctx, models.Elder{UserID: "u2", Name: "Ravi"})
	require.NoError(t, err)

	elders, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, elders, 1)
	assert.Equal(t, asha.ID, elders[0].ID)
	assert.Equal(t, "Asha", elders[0].Name)
	assert.Equal(t, []string{"Diabetes"}, elders[0].Conditions)
	assert.Equal(t, []string{}, elders[0].Allergies)
	assert.False(t, elders[0].CreatedAt.IsZero())

	require.NoError(t, svc.Delete(ctx, asha.ID))
	elders, err = svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, elders)
}

func TestValidateMedicine(t *testing.T) {
	tests := []struct {
		name    string
		med     models.Medicine
		wantErr bool
	}{
		{"valid", models.Medicine{ElderID: "e1", Name: "Dolo", Times: []string{"08:00"}}, false},
		{"missing elder", models.Medicine{Name: "Dolo", Times: []string{"08:00"}}, true},
		{"missing name", models.Medicine{ElderID: "e1", Times: []string{"08:00"}}, true},
		{"empty times", models.Medicine{ElderID: "e1", Name: "Dolo"}, true},
		{"bad time", models.Medicine{ElderID: "e1", Name: "Dolo", Times: []string{"8am"}}, true},
		{"out of range time", models.Medicine{ElderID: "e1", Name: "Dolo", Times: []string{"25:00"}}, true},
		{"bad meal timing", models.Medicine{ElderID: "e1", Name: "Dolo", Times: []string{"08:00"}, MealTiming: "during"}, true},
		{"end before start", models.Medicine{ElderID: "e1", Name: "Dolo", Times: []string{"08:00"}, StartDate: "2024-02-01", EndDate: "2024-01-01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.med
			err := ValidateMedicine(&m)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.MealAfter, m.MealTiming)
		})
	}
}

func TestMedicineService_AddUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewMedicineService(docstore.NewMemoryStore())

	med, err := svc.Add(ctx, models.Medicine{ElderID: "e1", Name: "Metformin", Dosage: "500mg", Times: []string{"08:00", "20:00"}, MealTiming: models.MealWith})
	require.NoError(t, err)
	require.NotEmpty(t, med.ID)

	med.Times = []string{"09:00"}
	_, err = svc.Update(ctx, med)
	require.NoError(t, err)

	meds, err := svc.ListByElder(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, []string{"09:00"}, meds[0].Times)

	require.NoError(t, svc.Delete(ctx, med.ID))
	assert.ErrorIs(t, svc.Delete(ctx, med.ID), docstore.ErrNotFound)
}

func TestVitalService_Add(t *testing.T) {
	ctx := context.Background()
	svc := NewVitalService(docstore.NewMemoryStore())

	_, err := svc.Add(ctx, models.Vital{ElderID: "e1", Type: "Cholesterol", Value: "180"})
	assert.ErrorIs(t, err, ErrValidation)

	v, err := svc.Add(ctx, models.Vital{ElderID: "e1", Type: models.VitalBP, Value: "120/80", Unit: "mmHg"})
	require.NoError(t, err)
	assert.False(t, v.RecordedAt.IsZero())

	vitals, err := svc.ListByElder(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, vitals, 1)
	assert.Equal(t, "120/80", vitals[0].Value)
}

func TestCarePlanService_NewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := NewCarePlanService(docstore.NewMemoryStore())

	for _, date := range []string{"2024-01-05", "2024-03-01", "2024-02-10"} {
		_, err := svc.Add(ctx, models.CarePlanEvent{ElderID: "e1", Type: models.EventNote, Title: "Visit", Date: date})
		require.NoError(t, err)
	}

	events, err := svc.ListByElder(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "2024-03-01", events[0].Date)
	assert.Equal(t, "2024-01-05", events[2].Date)

	_, err = svc.Add(ctx, models.CarePlanEvent{ElderID: "e1", Type: "party", Title: "x"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPrescriptionService_DefaultsDate(t *testing.T) {
	ctx := context.Background()
	svc := NewPrescriptionService(docstore.NewMemoryStore())

	name := "Dolo 650"
	p, err := svc.Add(ctx, models.Prescription{ElderID: "e1", AIParsed: true, Medicines: []models.ParsedMedicine{{Name: &name}}})
	require.NoError(t, err)
	assert.NotEmpty(t, p.Date)

	out, err := svc.ListByElder(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Medicines[0].Name)
	assert.Equal(t, "Dolo 650", *out[0].Medicines[0].Name)
	assert.Nil(t, out[0].Medicines[0].Dosage)
}
