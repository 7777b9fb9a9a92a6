package session

import (
	"context"
	"fmt"
	"strings"

	"mediminds/internal/reminders"
	"mediminds/internal/services"
	"mediminds/pkg/models"
)

// ImportedMedicine is an AI-parsed medicine the caregiver chose to keep,
// optionally with explicit times of day.
type ImportedMedicine struct {
	models.ParsedMedicine
	Times     []string `json:"times,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
}

type ImportRequest struct {
	DoctorName string             `json:"doctorName"`
	Date       string             `json:"date"`
	Notes      string             `json:"notes"`
	Medicines  []ImportedMedicine `json:"medicines"`
}

// ImportPrescription records an AI-parsed prescription and commits each named
// medicine to the elder's schedule. All medicines are validated before
// anything is written.
func (s *Session) ImportPrescription(ctx context.Context, elderID string, req ImportRequest) (models.Prescription, []models.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasElder(elderID) {
		return models.Prescription{}, nil, fmt.Errorf("elder %s: %w", elderID, ErrNotFound)
	}

	var (
		toAdd  []models.Medicine
		parsed []models.ParsedMedicine
	)
	for _, im := range req.Medicines {
		parsed = append(parsed, im.ParsedMedicine)
		if im.Name == nil || strings.TrimSpace(*im.Name) == "" {
			continue
		}
		m := medicineFromParsed(elderID, im)
		if err := services.ValidateMedicine(&m); err != nil {
			return models.Prescription{}, nil, fmt.Errorf("medicine %q: %w", m.Name, err)
		}
		toAdd = append(toAdd, m)
	}

	rx, err := s.addPrescriptionLocked(ctx, models.Prescription{
		ElderID:    elderID,
		DoctorName: req.DoctorName,
		Date:       req.Date,
		AIParsed:   true,
		Medicines:  parsed,
		Notes:      req.Notes,
	})
	if err != nil {
		return models.Prescription{}, nil, err
	}

	added := make([]models.Medicine, 0, len(toAdd))
	for _, m := range toAdd {
		created, err := s.svc.Medicines.Add(ctx, m)
		if err != nil {
			return rx, added, err
		}
		s.medicines = append(s.medicines, created)
		s.reminders = append(s.reminders, reminders.ForMedicine(created, s.day)...)
		added = append(added, created)
	}
	reminders.Sort(s.reminders)
	return rx, added, nil
}

func medicineFromParsed(elderID string, im ImportedMedicine) models.Medicine {
	m := models.Medicine{
		ElderID:    elderID,
		Name:       deref(im.Name),
		Dosage:     deref(im.Dosage),
		Frequency:  deref(im.Frequency),
		Duration:   deref(im.Duration),
		Notes:      deref(im.Instructions),
		MealTiming: MealTimingFromText(deref(im.Timing)),
		StartDate:  im.StartDate,
		Times:      im.Times,
	}
	if len(m.Times) == 0 {
		m.Times = DefaultTimes(m.Frequency)
	}
	return m
}

// MealTimingFromText maps free text such as "After food" to a meal timing.
func MealTimingFromText(text string) models.MealTiming {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "before") || strings.Contains(t, "empty stomach"):
		return models.MealBefore
	case strings.Contains(t, "with"):
		return models.MealWith
	default:
		return models.MealAfter
	}
}

// DefaultTimes proposes times of day for a frequency label when the caregiver
// did not pick any.
func DefaultTimes(frequency string) []string {
	f := strings.ToLower(frequency)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(f, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("four", "4 times", "qid", "qds"):
		return []string{"08:00", "12:00", "16:00", "20:00"}
	case has("thrice", "three", "3 times", "tid", "tds"):
		return []string{"08:00", "14:00", "20:00"}
	case has("twice", "two", "2 times", "bid", "bd"):
		return []string{"08:00", "20:00"}
	case has("night", "bedtime"):
		return []string{"21:00"}
	default:
		return []string{"08:00"}
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
