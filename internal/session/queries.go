package session

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"mediminds/internal/reminders"
	"mediminds/internal/services"
	"mediminds/pkg/models"
)

// Queries return copies; unknown ids yield empty lists.

func (s *Session) Elders() []models.Elder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(nonNil(s.elders))
}

func (s *Session) Elder(id string) (models.Elder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.elders {
		if e.ID == id {
			return e, true
		}
	}
	return models.Elder{}, false
}

func (s *Session) Medicine(id string) (models.Medicine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.medicineIndex(id); idx >= 0 {
		return s.medicines[idx], true
	}
	return models.Medicine{}, false
}

func (s *Session) Reminder(id string) (models.Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.reminderIndex(id); idx >= 0 {
		return s.reminders[idx], true
	}
	return models.Reminder{}, false
}

func (s *Session) MedicinesForElder(elderID string) []models.Medicine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.medicines, func(m models.Medicine) bool { return m.ElderID == elderID })
}

func (s *Session) RemindersForElder(elderID string) []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.reminders, func(r models.Reminder) bool { return r.ElderID == elderID })
}

// TodaysReminders returns the reminders of the session's current day across
// all elders, ordered by scheduled time.
func (s *Session) TodaysReminders() []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reminders.Today(s.reminders, s.day, s.opts.Location)
}

// VitalsForElder returns readings oldest first.
func (s *Session) VitalsForElder(elderID string) []models.Vital {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := filter(s.vitals, func(v models.Vital) bool { return v.ElderID == elderID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out
}

func (s *Session) PrescriptionsForElder(elderID string) []models.Prescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.prescriptions, func(p models.Prescription) bool { return p.ElderID == elderID })
}

// CarePlanEventsForElder returns the timeline newest first.
func (s *Session) CarePlanEventsForElder(elderID string) []models.CarePlanEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := filter(s.events, func(e models.CarePlanEvent) bool { return e.ElderID == elderID })
	services.SortCarePlanEvents(out)
	return out
}

// Summary computes today's adherence and the latest reading per vital type.
func (s *Session) Summary(elderID string) models.HealthSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := models.HealthSummary{
		ElderID:      elderID,
		Date:         s.day.Format(models.DateLayout),
		LatestVitals: []models.Vital{},
		Concerns:     []string{},
	}

	for _, r := range reminders.Today(s.reminders, s.day, s.opts.Location) {
		if r.ElderID != elderID {
			continue
		}
		sum.TotalDoses++
		switch r.Status {
		case models.StatusTaken:
			sum.TakenDoses++
		case models.StatusMissed:
			sum.MissedDoses++
		}
	}
	if resolved := sum.TakenDoses + sum.MissedDoses; resolved > 0 {
		sum.AdherenceRate = float64(sum.TakenDoses) * 100 / float64(resolved)
	}

	for _, m := range s.medicines {
		if m.ElderID == elderID && m.ActiveOn(s.day) {
			sum.ActiveMedicine++
		}
	}

	latest := map[models.VitalType]models.Vital{}
	var newest time.Time
	for _, v := range s.vitals {
		if v.ElderID != elderID {
			continue
		}
		if cur, ok := latest[v.Type]; !ok || v.RecordedAt.After(cur.RecordedAt) {
			latest[v.Type] = v
		}
		if v.RecordedAt.After(newest) {
			newest = v.RecordedAt
		}
	}
	for _, v := range latest {
		sum.LatestVitals = append(sum.LatestVitals, v)
	}
	sort.Slice(sum.LatestVitals, func(i, j int) bool { return sum.LatestVitals[i].Type < sum.LatestVitals[j].Type })

	if sum.MissedDoses > 0 {
		sum.Concerns = append(sum.Concerns, fmt.Sprintf("%d missed dose(s) today", sum.MissedDoses))
	}
	if newest.IsZero() {
		sum.Concerns = append(sum.Concerns, "No vitals recorded yet")
	} else if s.opts.Now().Sub(newest) > 7*24*time.Hour {
		sum.Concerns = append(sum.Concerns, "No vitals recorded in the last 7 days")
	}
	return sum
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := []T{}
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// Appointments reads through to the store on every call.
func (s *Session) Appointments(ctx context.Context, elderID string) ([]models.Appointment, error) {
	s.mu.RLock()
	owned := s.hasElder(elderID)
	s.mu.RUnlock()
	if !owned {
		return []models.Appointment{}, nil
	}
	return s.svc.Appointments.ListByElder(ctx, elderID)
}
