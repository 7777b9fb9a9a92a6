// Package reminders derives the daily dose schedule from medicine definitions
// and drives each dose through its status lifecycle.
package reminders

import (
	"fmt"
	"sort"
	"time"

	"mediminds/pkg/models"
)

// ReminderID is stable for a (medicine, slot, scheduled time) triple, so
// deriving the same day twice yields the same identifiers while a slot moved
// to another time of day gets a new one.
func ReminderID(medicineID string, slot int, at time.Time) string {
	return fmt.Sprintf("rem-%s-%d-%s", medicineID, slot, at.Format("20060102-1504"))
}

// DayOf returns local midnight of the calendar day containing now.
func DayOf(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayOf(a, loc).Equal(DayOf(b, loc))
}

// ForMedicine synthesizes one scheduled reminder per entry of m.Times, in
// slot order, for the given local day. Unparsable times are skipped.
func ForMedicine(m models.Medicine, day time.Time) []models.Reminder {
	if !m.ActiveOn(day) {
		return nil
	}
	out := make([]models.Reminder, 0, len(m.Times))
	for i, t := range m.Times {
		hm, err := time.Parse("15:04", t)
		if err != nil {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, day.Location())
		out = append(out, models.Reminder{
			ID:            ReminderID(m.ID, i, at),
			MedicineID:    m.ID,
			ElderID:       m.ElderID,
			ScheduledTime: at,
			Status:        models.StatusScheduled,
			SMSStatus:     models.ChannelPending,
			VoiceStatus:   models.ChannelPending,
		})
	}
	return out
}

// Derive builds the reminders for every medicine on the local day of now.
func Derive(meds []models.Medicine, now time.Time, loc *time.Location) []models.Reminder {
	day := DayOf(now, loc)
	var out []models.Reminder
	for _, m := range meds {
		out = append(out, ForMedicine(m, day)...)
	}
	Sort(out)
	return out
}

// Regenerate refreshes m's reminders after its schedule changed. Slots still
// prescribed at the same time keep their state. Reminders of slots that were
// moved or removed are dropped, unless they already passed and were acted on
// (sent, snoozed, taken or missed), in which case they stay as history.
func Regenerate(existing []models.Reminder, m models.Medicine, now time.Time, loc *time.Location) []models.Reminder {
	fresh := ForMedicine(m, DayOf(now, loc))
	want := make(map[string]struct{}, len(fresh))
	for _, r := range fresh {
		want[r.ID] = struct{}{}
	}

	kept := make([]models.Reminder, 0, len(existing)+len(fresh))
	ids := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		if r.MedicineID == m.ID {
			if _, ok := want[r.ID]; !ok {
				if r.ScheduledTime.After(now) || r.Status == models.StatusScheduled {
					continue
				}
			}
		}
		kept = append(kept, r)
		ids[r.ID] = struct{}{}
	}

	for _, r := range fresh {
		if _, ok := ids[r.ID]; ok {
			continue
		}
		kept = append(kept, r)
	}
	Sort(kept)
	return kept
}

// RemoveMedicine drops every reminder belonging to medicineID.
func RemoveMedicine(existing []models.Reminder, medicineID string) []models.Reminder {
	out := existing[:0:0]
	for _, r := range existing {
		if r.MedicineID != medicineID {
			out = append(out, r)
		}
	}
	return out
}

// RemoveElder drops every reminder belonging to elderID.
func RemoveElder(existing []models.Reminder, elderID string) []models.Reminder {
	out := existing[:0:0]
	for _, r := range existing {
		if r.ElderID != elderID {
			out = append(out, r)
		}
	}
	return out
}

// Today keeps the reminders scheduled on the local day of now.
func Today(all []models.Reminder, now time.Time, loc *time.Location) []models.Reminder {
	out := []models.Reminder{}
	for _, r := range all {
		if SameDay(r.ScheduledTime, now, loc) {
			out = append(out, r)
		}
	}
	return out
}

func Sort(rs []models.Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].ScheduledTime.Equal(rs[j].ScheduledTime) {
			return rs[i].ScheduledTime.Before(rs[j].ScheduledTime)
		}
		return rs[i].ID < rs[j].ID
	})
}
