package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mediminds/internal/docstore"
	"mediminds/pkg/models"
)

// PrescriptionService stores parsing events. Prescriptions are only removed
// together with their elder.
type PrescriptionService struct {
	store docstore.Store
	now   func() time.Time
}

func NewPrescriptionService(store docstore.Store) *PrescriptionService {
	return &PrescriptionService{store: store, now: time.Now}
}

func (s *PrescriptionService) Add(ctx context.Context, p models.Prescription) (models.Prescription, error) {
	if p.ElderID == "" {
		return models.Prescription{}, validationError("elderId is required to add a prescription")
	}
	if p.Date == "" {
		p.Date = s.now().Format(models.DateLayout)
	}
	if p.Medicines == nil {
		p.Medicines = []models.ParsedMedicine{}
	}
	id, err := add(ctx, s.store, CollectionPrescriptions, p)
	if err != nil {
		return models.Prescription{}, fmt.Errorf("add prescription: %w", err)
	}
	p.ID = id
	return p, nil
}

func (s *PrescriptionService) ListByElder(ctx context.Context, elderID string) ([]models.Prescription, error) {
	out, err := list[models.Prescription](ctx, s.store, CollectionPrescriptions, docstore.Eq("elderId", elderID))
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return out, nil
}

func (s *PrescriptionService) Delete(ctx context.Context, prescriptionID string) error {
	if err := s.store.Delete(ctx, CollectionPrescriptions, prescriptionID); err != nil {
		return fmt.Errorf("delete prescription: %w", err)
	}
	return nil
}

// CarePlanService stores timeline entries. Entries are only removed together
// with their elder.
type CarePlanService struct {
	store docstore.Store
	now   func() time.Time
}

func NewCarePlanService(store docstore.Store) *CarePlanService {
	return &CarePlanService{store: store, now: time.Now}
}

func (s *CarePlanService) Add(ctx context.Context, e models.CarePlanEvent) (models.CarePlanEvent, error) {
	if e.ElderID == "" {
		return models.CarePlanEvent{}, validationError("elderId is required to add a care plan event")
	}
	if !e.Type.Valid() {
		return models.CarePlanEvent{}, validationError("invalid care plan event type %q", e.Type)
	}
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return models.CarePlanEvent{}, validationError("care plan event title is required")
	}
	if e.Date == "" {
		e.Date = s.now().Format(models.DateLayout)
	}
	id, err := add(ctx, s.store, CollectionCarePlanEvents, e)
	if err != nil {
		return models.CarePlanEvent{}, fmt.Errorf("add care plan event: %w", err)
	}
	e.ID = id
	return e, nil
}

// ListByElder returns the elder's timeline, newest first.
func (s *CarePlanService) ListByElder(ctx context.Context, elderID string) ([]models.CarePlanEvent, error) {
	out, err := list[models.CarePlanEvent](ctx, s.store, CollectionCarePlanEvents, docstore.Eq("elderId", elderID))
	if err != nil {
		return nil, fmt.Errorf("list care plan events: %w", err)
	}
	SortCarePlanEvents(out)
	return out, nil
}

func (s *CarePlanService) Delete(ctx context.Context, eventID string) error {
	if err := s.store.Delete(ctx, CollectionCarePlanEvents, eventID); err != nil {
		return fmt.Errorf("delete care plan event: %w", err)
	}
	return nil
}

func SortCarePlanEvents(events []models.CarePlanEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date > events[j].Date
	})
}

// AppointmentService is read-only: appointments are seeded outside the app.
type AppointmentService struct {
	store docstore.Store
}

func NewAppointmentService(store docstore.Store) *AppointmentService {
	return &AppointmentService{store: store}
}

func (s *AppointmentService) ListByElder(ctx context.Context, elderID string) ([]models.Appointment, error) {
	out, err := list[models.Appointment](ctx, s.store, CollectionAppointments, docstore.Eq("elderId", elderID))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date+out[i].Time < out[j].Date+out[j].Time
	})
	return out, nil
}
