package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document id does not exist in its collection.
var ErrNotFound = errors.New("document not found")

// Timestamp fields written by every Store implementation.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Filter is an equality constraint on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

type Document struct {
	ID   string
	Data map[string]interface{}
}

// Store is the document database used by the domain services.
type Store interface {
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	Get(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
}

// Encode turns a typed record into document fields. The "id" field is
// dropped because the store owns identifiers.
func Encode(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	delete(data, "id")
	return data, nil
}

// Decode fills out from a stored document, including its id.
func Decode(doc Document, out interface{}) error {
	data := make(map[string]interface{}, len(doc.Data)+1)
	for k, v := range doc.Data {
		data[k] = v
	}
	data["id"] = doc.ID

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
