package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mediminds/internal/docstore"
	"mediminds/pkg/models"
)

type VitalService struct {
	store docstore.Store
	now   func() time.Time
}

func NewVitalService(store docstore.Store) *VitalService {
	return &VitalService{store: store, now: time.Now}
}

func (s *VitalService) Add(ctx context.Context, v models.Vital) (models.Vital, error) {
	if v.ElderID == "" {
		return models.Vital{}, validationError("elderId is required to add a vital")
	}
	if !v.Type.Valid() {
		return models.Vital{}, validationError("invalid vital type %q", v.Type)
	}
	v.Value = strings.TrimSpace(v.Value)
	if v.Value == "" {
		return models.Vital{}, validationError("vital value is required")
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = s.now()
	}

	id, err := add(ctx, s.store, CollectionVitals, v)
	if err != nil {
		return models.Vital{}, fmt.Errorf("add vital: %w", err)
	}
	v.ID = id
	return v, nil
}

func (s *VitalService) ListByElder(ctx context.Context, elderID string) ([]models.Vital, error) {
	if elderID == "" {
		return nil, validationError("elderId is required to fetch vitals")
	}
	vitals, err := list[models.Vital](ctx, s.store, CollectionVitals, docstore.Eq("elderId", elderID))
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	return vitals, nil
}

func (s *VitalService) Delete(ctx context.Context, vitalID string) error {
	if err := s.store.Delete(ctx, CollectionVitals, vitalID); err != nil {
		return fmt.Errorf("delete vital: %w", err)
	}
	return nil
}
