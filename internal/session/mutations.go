package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"mediminds/internal/reminders"
	"mediminds/pkg/models"

	"go.uber.org/zap"
)

func (s *Session) AddElder(ctx context.Context, elder models.Elder) (models.Elder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elder.UserID = s.caregiver.UserID
	created, err := s.svc.Elders.Add(ctx, elder)
	if err != nil {
		return models.Elder{}, err
	}
	s.elders = append(s.elders, created)
	return created, nil
}

// DeleteElder removes the elder together with its medicines, vitals,
// prescriptions, care plan events and reminders. When the cascade fails
// partway the session is reloaded from the store so it matches what is left.
func (s *Session) DeleteElder(ctx context.Context, elderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasElder(elderID) {
		return fmt.Errorf("elder %s: %w", elderID, ErrNotFound)
	}

	if err := s.cascadeDeleteLocked(ctx, elderID); err != nil {
		if reloadErr := s.loadLocked(ctx); reloadErr != nil {
			s.logger.Error("failed to reload session after partial elder delete",
				zap.String("elder_id", elderID),
				zap.Error(reloadErr),
			)
		}
		return fmt.Errorf("cascade delete elder %s: %w", elderID, err)
	}

	s.elders = slices.DeleteFunc(s.elders, func(e models.Elder) bool { return e.ID == elderID })
	s.medicines = slices.DeleteFunc(s.medicines, func(m models.Medicine) bool { return m.ElderID == elderID })
	s.vitals = slices.DeleteFunc(s.vitals, func(v models.Vital) bool { return v.ElderID == elderID })
	s.prescriptions = slices.DeleteFunc(s.prescriptions, func(p models.Prescription) bool { return p.ElderID == elderID })
	s.events = slices.DeleteFunc(s.events, func(e models.CarePlanEvent) bool { return e.ElderID == elderID })
	s.reminders = reminders.RemoveElder(s.reminders, elderID)

	s.logger.Info("elder deleted", zap.String("elder_id", elderID))
	return nil
}

// cascadeDeleteLocked deletes the elder's records from the store, the elder
// document last.
func (s *Session) cascadeDeleteLocked(ctx context.Context, elderID string) error {
	for _, m := range s.medicines {
		if m.ElderID == elderID {
			if err := s.svc.Medicines.Delete(ctx, m.ID); err != nil {
				return err
			}
		}
	}
	for _, v := range s.vitals {
		if v.ElderID == elderID {
			if err := s.svc.Vitals.Delete(ctx, v.ID); err != nil {
				return err
			}
		}
	}
	for _, p := range s.prescriptions {
		if p.ElderID == elderID {
			if err := s.svc.Prescriptions.Delete(ctx, p.ID); err != nil {
				return err
			}
		}
	}
	for _, e := range s.events {
		if e.ElderID == elderID {
			if err := s.svc.CarePlan.Delete(ctx, e.ID); err != nil {
				return err
			}
		}
	}
	return s.svc.Elders.Delete(ctx, elderID)
}

// AddMedicine stores the medicine and schedules its reminders for the
// session's current day.
func (s *Session) AddMedicine(ctx context.Context, m models.Medicine) (models.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasElder(m.ElderID) {
		return models.Medicine{}, fmt.Errorf("elder %s: %w", m.ElderID, ErrNotFound)
	}
	created, err := s.svc.Medicines.Add(ctx, m)
	if err != nil {
		return models.Medicine{}, err
	}
	s.medicines = append(s.medicines, created)
	s.reminders = append(s.reminders, reminders.ForMedicine(created, s.day)...)
	reminders.Sort(s.reminders)
	return created, nil
}

// UpdateMedicine replaces the definition. When the schedule changed, the
// medicine's future reminders are regenerated.
func (s *Session) UpdateMedicine(ctx context.Context, m models.Medicine) (models.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.medicineIndex(m.ID)
	if idx < 0 {
		return models.Medicine{}, fmt.Errorf("medicine %s: %w", m.ID, ErrNotFound)
	}
	prev := s.medicines[idx]
	m.ElderID = prev.ElderID

	updated, err := s.svc.Medicines.Update(ctx, m)
	if err != nil {
		return models.Medicine{}, err
	}
	s.medicines[idx] = updated

	if scheduleChanged(prev, updated) {
		s.reminders = reminders.Regenerate(s.reminders, updated, s.opts.Now(), s.opts.Location)
		s.logger.Info("medicine schedule changed, reminders regenerated",
			zap.String("medicine_id", updated.ID),
			zap.Strings("times", updated.Times),
		)
	}
	return updated, nil
}

func scheduleChanged(a, b models.Medicine) bool {
	return !slices.Equal(a.Times, b.Times) ||
		a.Frequency != b.Frequency ||
		a.StartDate != b.StartDate ||
		a.EndDate != b.EndDate
}

// DeleteMedicine removes the medicine and every reminder derived from it.
func (s *Session) DeleteMedicine(ctx context.Context, medicineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.medicineIndex(medicineID) < 0 {
		return fmt.Errorf("medicine %s: %w", medicineID, ErrNotFound)
	}
	if err := s.svc.Medicines.Delete(ctx, medicineID); err != nil {
		return err
	}
	s.medicines = slices.DeleteFunc(s.medicines, func(m models.Medicine) bool { return m.ID == medicineID })
	s.reminders = reminders.RemoveMedicine(s.reminders, medicineID)
	return nil
}

func (s *Session) AddVital(ctx context.Context, v models.Vital) (models.Vital, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasElder(v.ElderID) {
		return models.Vital{}, fmt.Errorf("elder %s: %w", v.ElderID, ErrNotFound)
	}
	created, err := s.svc.Vitals.Add(ctx, v)
	if err != nil {
		return models.Vital{}, err
	}
	s.vitals = append(s.vitals, created)
	return created, nil
}

func (s *Session) DeleteVital(ctx context.Context, vitalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.vitals, func(v models.Vital) bool { return v.ID == vitalID }) {
		return fmt.Errorf("vital %s: %w", vitalID, ErrNotFound)
	}
	if err := s.svc.Vitals.Delete(ctx, vitalID); err != nil {
		return err
	}
	s.vitals = slices.DeleteFunc(s.vitals, func(v models.Vital) bool { return v.ID == vitalID })
	return nil
}

func (s *Session) AddCarePlanEvent(ctx context.Context, e models.CarePlanEvent) (models.CarePlanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasElder(e.ElderID) {
		return models.CarePlanEvent{}, fmt.Errorf("elder %s: %w", e.ElderID, ErrNotFound)
	}
	return s.addEventLocked(ctx, e)
}

func (s *Session) addEventLocked(ctx context.Context, e models.CarePlanEvent) (models.CarePlanEvent, error) {
	created, err := s.svc.CarePlan.Add(ctx, e)
	if err != nil {
		return models.CarePlanEvent{}, err
	}
	s.events = append(s.events, created)
	return created, nil
}

// AddPrescription stores the prescription and appends a matching entry to
// the elder's care plan timeline.
func (s *Session) AddPrescription(ctx context.Context, p models.Prescription) (models.Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasElder(p.ElderID) {
		return models.Prescription{}, fmt.Errorf("elder %s: %w", p.ElderID, ErrNotFound)
	}
	return s.addPrescriptionLocked(ctx, p)
}

func (s *Session) addPrescriptionLocked(ctx context.Context, p models.Prescription) (models.Prescription, error) {
	created, err := s.svc.Prescriptions.Add(ctx, p)
	if err != nil {
		return models.Prescription{}, err
	}
	s.prescriptions = append(s.prescriptions, created)

	title := "Prescription added"
	if created.DoctorName != "" {
		title = "Prescription from " + created.DoctorName
	}
	event := models.CarePlanEvent{
		ElderID:     created.ElderID,
		Date:        created.Date,
		Type:        models.EventPrescription,
		Title:       title,
		Description: describeMedicines(created.Medicines),
	}
	if _, err := s.addEventLocked(ctx, event); err != nil {
		s.logger.Warn("failed to add prescription timeline event",
			zap.String("prescription_id", created.ID),
			zap.Error(err),
		)
	}
	return created, nil
}

func describeMedicines(meds []models.ParsedMedicine) string {
	names := make([]string, 0, len(meds))
	for _, m := range meds {
		if m.Name != nil && *m.Name != "" {
			names = append(names, *m.Name)
		}
	}
	if len(names) == 0 {
		return "No medicines recorded"
	}
	return strings.Join(names, ", ")
}
