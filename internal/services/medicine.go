package services

import (
	"context"
	"fmt"
	"strings"

	"mediminds/internal/docstore"
	"mediminds/pkg/models"
)

type MedicineService struct {
	store docstore.Store
}

func NewMedicineService(store docstore.Store) *MedicineService {
	return &MedicineService{store: store}
}

// ValidateMedicine enforces the creation-time invariants, most importantly a
// non-empty list of HH:MM times so every medicine yields reminders.
func ValidateMedicine(m *models.Medicine) error {
	if m.ElderID == "" {
		return validationError("elderId is required to add a medicine")
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return validationError("medicine name is required")
	}
	if len(m.Times) == 0 {
		return validationError("at least one time of day is required")
	}
	for _, t := range m.Times {
		if !ValidTimeOfDay(t) {
			return validationError("invalid time %q, expected HH:MM", t)
		}
	}
	if m.MealTiming == "" {
		m.MealTiming = models.MealAfter
	}
	if !m.MealTiming.Valid() {
		return validationError("invalid meal timing %q", m.MealTiming)
	}
	if m.EndDate != "" && m.StartDate != "" && m.EndDate < m.StartDate {
		return validationError("end date is before start date")
	}
	return nil
}

func (s *MedicineService) Add(ctx context.Context, m models.Medicine) (models.Medicine, error) {
	if err := ValidateMedicine(&m); err != nil {
		return models.Medicine{}, err
	}
	id, err := add(ctx, s.store, CollectionMedicines, m)
	if err != nil {
		return models.Medicine{}, fmt.Errorf("add medicine: %w", err)
	}
	m.ID = id
	return m, nil
}

func (s *MedicineService) ListByElder(ctx context.Context, elderID string) ([]models.Medicine, error) {
	if elderID == "" {
		return nil, validationError("elderId is required to fetch medicines")
	}
	meds, err := list[models.Medicine](ctx, s.store, CollectionMedicines, docstore.Eq("elderId", elderID))
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return meds, nil
}

// Update replaces the stored definition in place.
func (s *MedicineService) Update(ctx context.Context, m models.Medicine) (models.Medicine, error) {
	if m.ID == "" {
		return models.Medicine{}, validationError("medicine id is required")
	}
	if err := ValidateMedicine(&m); err != nil {
		return models.Medicine{}, err
	}
	patch, err := docstore.Encode(m)
	if err != nil {
		return models.Medicine{}, err
	}
	if err := s.store.Update(ctx, CollectionMedicines, m.ID, patch); err != nil {
		return models.Medicine{}, fmt.Errorf("update medicine: %w", err)
	}
	return m, nil
}

func (s *MedicineService) Delete(ctx context.Context, medicineID string) error {
	if err := s.store.Delete(ctx, CollectionMedicines, medicineID); err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	return nil
}
