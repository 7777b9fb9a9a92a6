package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mediminds/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS reminder_events (
	id             BIGSERIAL PRIMARY KEY,
	user_id        TEXT        NOT NULL,
	reminder_id    TEXT        NOT NULL,
	medicine_id    TEXT        NOT NULL,
	elder_id       TEXT        NOT NULL,
	status         TEXT        NOT NULL,
	sms_status     TEXT        NOT NULL,
	voice_status   TEXT        NOT NULL,
	scheduled_time TIMESTAMPTZ NOT NULL,
	taken_at       TIMESTAMPTZ,
	recorded_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reminder_events_elder ON reminder_events (user_id, elder_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_reminder_events_scheduled ON reminder_events (user_id, scheduled_time);
`

// ReminderEvent is one recorded status transition.
type ReminderEvent struct {
	ID         int64           `json:"id"`
	Reminder   models.Reminder `json:"reminder"`
	RecordedAt time.Time       `json:"recordedAt"`
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordReminder appends the reminder's current state to the log.
func (db *DB) RecordReminder(ctx context.Context, userID string, r models.Reminder) error {
	query := `
		INSERT INTO reminder_events
			(user_id, reminder_id, medicine_id, elder_id, status, sms_status, voice_status, scheduled_time, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var takenAt sql.NullTime
	if r.TakenAt != nil {
		takenAt = sql.NullTime{Time: *r.TakenAt, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, query,
		userID, r.ID, r.MedicineID, r.ElderID,
		string(r.Status), string(r.SMSStatus), string(r.VoiceStatus),
		r.ScheduledTime, takenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record reminder %s: %w", r.ID, err)
	}
	return nil
}

// ReminderHistory lists the caregiver's recorded transitions for one elder,
// newest first.
func (db *DB) ReminderHistory(ctx context.Context, userID, elderID string, limit int) ([]ReminderEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, reminder_id, medicine_id, elder_id, status, sms_status, voice_status, scheduled_time, taken_at, recorded_at
		FROM reminder_events
		WHERE user_id = $1 AND elder_id = $2
		ORDER BY recorded_at DESC, id DESC
		LIMIT $3
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, elderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder history: %w", err)
	}
	defer rows.Close()

	events := []ReminderEvent{}
	for rows.Next() {
		var (
			e                        ReminderEvent
			status, smsStatus, voice string
			takenAt                  sql.NullTime
		)
		err := rows.Scan(
			&e.ID, &e.Reminder.ID, &e.Reminder.MedicineID, &e.Reminder.ElderID,
			&status, &smsStatus, &voice,
			&e.Reminder.ScheduledTime, &takenAt, &e.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		e.Reminder.Status = models.ReminderStatus(status)
		e.Reminder.SMSStatus = models.ChannelStatus(smsStatus)
		e.Reminder.VoiceStatus = models.ChannelStatus(voice)
		if takenAt.Valid {
			t := takenAt.Time
			e.Reminder.TakenAt = &t
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reminder history: %w", err)
	}
	return events, nil
}

// RestoreReminders returns the latest recorded state of every reminder of the
// caregiver scheduled in [from, to).
func (db *DB) RestoreReminders(ctx context.Context, userID string, from, to time.Time) ([]models.Reminder, error) {
	query := `
		SELECT DISTINCT ON (reminder_id)
			reminder_id, medicine_id, elder_id, status, sms_status, voice_status, scheduled_time, taken_at
		FROM reminder_events
		WHERE user_id = $1 AND scheduled_time >= $2 AND scheduled_time < $3
		ORDER BY reminder_id, recorded_at DESC, id DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder states: %w", err)
	}
	defer rows.Close()

	var out []models.Reminder
	for rows.Next() {
		var (
			r                        models.Reminder
			status, smsStatus, voice string
			takenAt                  sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.MedicineID, &r.ElderID, &status, &smsStatus, &voice, &r.ScheduledTime, &takenAt); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		r.Status = models.ReminderStatus(status)
		r.SMSStatus = models.ChannelStatus(smsStatus)
		r.VoiceStatus = models.ChannelStatus(voice)
		if takenAt.Valid {
			t := takenAt.Time
			r.TakenAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reminder states: %w", err)
	}
	return out, nil
}
