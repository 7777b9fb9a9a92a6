package models

import "time"

type ReminderStatus string

const (
	StatusScheduled ReminderStatus = "scheduled"
	StatusSent      ReminderStatus = "sent"
	StatusTaken     ReminderStatus = "taken"
	StatusMissed    ReminderStatus = "missed"
	StatusSnoozed   ReminderStatus = "snoozed"
)

// Terminal reports whether no further transition is allowed.
func (s ReminderStatus) Terminal() bool {
	return s == StatusTaken || s == StatusMissed
}

func (s ReminderStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusSent, StatusTaken, StatusMissed, StatusSnoozed:
		return true
	}
	return false
}

// ChannelStatus tracks delivery over one notification channel (SMS or voice).
type ChannelStatus string

const (
	ChannelPending ChannelStatus = "pending"
	ChannelSent    ChannelStatus = "sent"
	ChannelFailed  ChannelStatus = "failed"
)

type MealTiming string

const (
	MealBefore MealTiming = "before"
	MealAfter  MealTiming = "after"
	MealWith   MealTiming = "with"
)

func (m MealTiming) Valid() bool {
	return m == MealBefore || m == MealAfter || m == MealWith
}

type VitalType string

const (
	VitalBP        VitalType = "BP"
	VitalSugar     VitalType = "Sugar"
	VitalHeartRate VitalType = "Heart Rate"
	VitalSpO2      VitalType = "SpO2"
	VitalTemp      VitalType = "Temp"
	VitalWeight    VitalType = "Weight"
)

func (v VitalType) Valid() bool {
	switch v {
	case VitalBP, VitalSugar, VitalHeartRate, VitalSpO2, VitalTemp, VitalWeight:
		return true
	}
	return false
}

type CarePlanEventType string

const (
	EventPrescription CarePlanEventType = "prescription"
	EventAppointment  CarePlanEventType = "appointment"
	EventCondition    CarePlanEventType = "condition"
	EventVitals       CarePlanEventType = "vitals"
	EventNote         CarePlanEventType = "note"
)

func (e CarePlanEventType) Valid() bool {
	switch e {
	case EventPrescription, EventAppointment, EventCondition, EventVitals, EventNote:
		return true
	}
	return false
}

// DateLayout is the calendar-date format used for start/end/event dates.
const DateLayout = "2006-01-02"

// Caregiver is the signed-in user as supplied by the identity provider.
type Caregiver struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type Elder struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Relation         string    `json:"relation"`
	Avatar           string    `json:"avatar,omitempty"`
	Conditions       []string  `json:"conditions"`
	Allergies        []string  `json:"allergies"`
	PrimaryCaregiver string    `json:"primaryCaregiver"`
	CaregiverPhone   string    `json:"caregiverPhone"`
	Phone            string    `json:"phone,omitempty"`
	DeviceToken      string    `json:"deviceToken,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
}

type Medicine struct {
	ID         string     `json:"id"`
	ElderID    string     `json:"elderId"`
	Name       string     `json:"name"`
	Dosage     string     `json:"dosage"`
	Frequency  string     `json:"frequency"`
	Times      []string   `json:"times"`
	MealTiming MealTiming `json:"mealTiming"`
	Duration   string     `json:"duration"`
	Notes      string     `json:"notes"`
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate,omitempty"`
}

// ActiveOn reports whether the medicine is prescribed on the given calendar
// day. Unset or unparsable dates do not restrict the window.
func (m Medicine) ActiveOn(day time.Time) bool {
	d := day.Format(DateLayout)
	if m.StartDate != "" {
		if _, err := time.Parse(DateLayout, m.StartDate); err == nil && d < m.StartDate {
			return false
		}
	}
	if m.EndDate != "" {
		if _, err := time.Parse(DateLayout, m.EndDate); err == nil && d > m.EndDate {
			return false
		}
	}
	return true
}

type Reminder struct {
	ID            string         `json:"id"`
	MedicineID    string         `json:"medicineId"`
	ElderID       string         `json:"elderId"`
	ScheduledTime time.Time      `json:"scheduledTime"`
	Status        ReminderStatus `json:"status"`
	SMSStatus     ChannelStatus  `json:"smsStatus"`
	VoiceStatus   ChannelStatus  `json:"voiceStatus"`
	TakenAt       *time.Time     `json:"takenAt,omitempty"`
}

type Vital struct {
	ID         string    `json:"id"`
	ElderID    string    `json:"elderId"`
	Type       VitalType `json:"type"`
	Value      string    `json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recordedAt"`
	Notes      string    `json:"notes,omitempty"`
}

// ParsedMedicine is one medicine extracted from a prescription. Fields the
// model could not determine are nil.
type ParsedMedicine struct {
	Name         *string `json:"name"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Timing       *string `json:"timing"`
	Duration     *string `json:"duration"`
	Instructions *string `json:"instructions"`
}

type Prescription struct {
	ID         string           `json:"id"`
	ElderID    string           `json:"elderId"`
	DoctorName string           `json:"doctorName"`
	Date       string           `json:"date"`
	ImageURL   string           `json:"imageUrl,omitempty"`
	AIParsed   bool             `json:"aiParsed"`
	Medicines  []ParsedMedicine `json:"medicines"`
	Notes      string           `json:"notes"`
}

type CarePlanEvent struct {
	ID          string            `json:"id"`
	ElderID     string            `json:"elderId"`
	Date        string            `json:"date"`
	Type        CarePlanEventType `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

type Appointment struct {
	ID         string `json:"id"`
	ElderID    string `json:"elderId"`
	DoctorName string `json:"doctorName"`
	Specialty  string `json:"specialty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Location   string `json:"location"`
	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status"`
}

// HealthSummary is computed on request from the caregiver's session.
type HealthSummary struct {
	ElderID        string   `json:"elderId"`
	Date           string   `json:"date"`
	TotalDoses     int      `json:"totalDoses"`
	TakenDoses     int      `json:"takenDoses"`
	MissedDoses    int      `json:"missedDoses"`
	AdherenceRate  float64  `json:"adherenceRate"`
	ActiveMedicine int      `json:"activeMedicines"`
	LatestVitals   []Vital  `json:"latestVitals"`
	Concerns       []string `json:"concerns"`
}
