package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediminds/internal/docstore"
)

// Collection names in the document store.
const (
	CollectionElders         = "elders"
	CollectionMedicines      = "medicines"
	CollectionVitals         = "vitals"
	CollectionPrescriptions  = "prescriptions"
	CollectionCarePlanEvents = "carePlanEvents"
	CollectionAppointments   = "appointments"
)

// ErrValidation marks input that was rejected before reaching the store.
var ErrValidation = errors.New("validation failed")

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func list[T any](ctx context.Context, store docstore.Store, collection string, filters ...docstore.Filter) ([]T, error) {
	docs, err := store.Get(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := docstore.Decode(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func add(ctx context.Context, store docstore.Store, collection string, v interface{}) (string, error) {
	data, err := docstore.Encode(v)
	if err != nil {
		return "", err
	}
	return store.Add(ctx, collection, data)
}

// ValidTimeOfDay reports whether s is a 24h "HH:MM" clock time.
func ValidTimeOfDay(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
