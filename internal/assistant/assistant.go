// Package assistant answers caregiver chat messages about one elder from the
// records already loaded in the session.
package assistant

import (
	"fmt"
	"strings"
	"unicode"

	"mediminds/pkg/models"
)

const Welcome = "Hello! I'm your MediMinds health assistant. You can ask me about medications, vitals, or general health advice for this profile."

const fallback = "I'm not sure about that. Consult a doctor for specific medical advice."

// Reply picks the first matching topic in order: medicines, vitals, side
// effects, diet, greeting. Vitals are expected oldest first.
func Reply(elder models.Elder, medicines []models.Medicine, vitals []models.Vital, message string) string {
	q := strings.ToLower(message)
	name := elder.Name

	switch {
	case containsAny(q, "medicine", "medication"):
		if len(medicines) == 0 {
			return fmt.Sprintf("%s has no active medications listed.", name)
		}
		names := make([]string, 0, len(medicines))
		for _, m := range medicines {
			names = append(names, m.Name)
		}
		return fmt.Sprintf("%s is currently taking: %s. Always follow the prescribed dosage.", name, strings.Join(names, ", "))

	case containsAny(q, "vital", "sugar") || hasWord(q, "bp"):
		if len(vitals) == 0 {
			return "No vital readings recorded recently."
		}
		v := vitals[len(vitals)-1]
		return fmt.Sprintf("The latest vital reading was %s: %s %s on %s.",
			v.Type, v.Value, v.Unit, v.RecordedAt.Format("02 Jan 2006"))

	case strings.Contains(q, "side effect"):
		return "Common side effects depend on the specific medication. Please upload a prescription or consult the medicine leaflet to analyze a new prescription."

	case containsAny(q, "diet", "food"):
		return "A balanced diet rich in vegetables and low in sodium is generally recommended. For specific conditions like diabetes or hypertension, please follow the doctor's dietary chart."

	case hasWord(q, "hello", "hi", "hey"):
		if name == "" {
			name = "your elder"
		}
		return fmt.Sprintf("Hello! How can I help you with %s's health today?", name)
	}
	return fallback
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// hasWord matches whole words only, so "hi" does not fire on "this".
func hasWord(s string, words ...string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
