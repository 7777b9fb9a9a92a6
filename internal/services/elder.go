package services

import (
	"context"
	"fmt"
	"strings"

	"mediminds/internal/docstore"
	"mediminds/pkg/models"
)

type ElderService struct {
	store docstore.Store
}

func NewElderService(store docstore.Store) *ElderService {
	return &ElderService{store: store}
}

// Add stores a new elder owned by elder.UserID and returns it with its id.
func (s *ElderService) Add(ctx context.Context, elder models.Elder) (models.Elder, error) {
	if elder.UserID == "" {
		return models.Elder{}, validationError("userId is required to add an elder")
	}
	elder.Name = strings.TrimSpace(elder.Name)
	if elder.Name == "" {
		return models.Elder{}, validationError("elder name is required")
	}
	if elder.Age < 0 {
		return models.Elder{}, validationError("age must not be negative")
	}
	if elder.Conditions == nil {
		elder.Conditions = []string{}
	}
	if elder.Allergies == nil {
		elder.Allergies = []string{}
	}

	id, err := add(ctx, s.store, CollectionElders, elder)
	if err != nil {
		return models.Elder{}, fmt.Errorf("add elder: %w", err)
	}
	elder.ID = id
	return elder, nil
}

func (s *ElderService) ListByUser(ctx context.Context, userID string) ([]models.Elder, error) {
	if userID == "" {
		return nil, validationError("userId is required to fetch elders")
	}
	elders, err := list[models.Elder](ctx, s.store, CollectionElders, docstore.Eq("userId", userID))
	if err != nil {
		return nil, fmt.Errorf("list elders: %w", err)
	}
	return elders, nil
}

func (s *ElderService) Delete(ctx context.Context, elderID string) error {
	if err := s.store.Delete(ctx, CollectionElders, elderID); err != nil {
		return fmt.Errorf("delete elder: %w", err)
	}
	return nil
}
