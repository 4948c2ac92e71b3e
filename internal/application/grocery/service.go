package grocery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pantrychef/pantry/internal/application"
	domain "github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/observability"
)

const groceryService = "grocery-service"

type IDGenerator interface {
	NewID() string
}

// ItemInput carries the user-editable fields of a grocery item.
type ItemInput struct {
	Name         string
	Quantity     float64
	Unit         string
	Category     string
	PurchaseDate *time.Time
	ExpiryDate   *time.Time
}

// Service manages a user's stock rows. Rows belonging to another user are
// reported as not found.
type Service struct {
	repo domain.Repository
	ids  IDGenerator
	in   *application.Instrument
}

func NewService(repo domain.Repository, ids IDGenerator, tel observability.Observability) *Service {
	return &Service{
		repo: repo,
		ids:  ids,
		in:   application.NewInstrument(groceryService, tel),
	}
}

func (s *Service) ListItems(ctx context.Context, userID string) (items []*domain.Item, err error) {
	err = s.in.Run(ctx, "grocery.list", "ListGroceryItems", func(ctx context.Context, o *application.Outcome) error {
		items, err = s.repo.ListByUser(ctx, userID)
		if err != nil {
			o.Fail("error", "REPO_LIST_FAILED")
			return fmt.Errorf("grocery: list: %w", err)
		}
		o.With(observability.F("count", len(items)))
		return nil
	})
	return items, err
}

func (s *Service) AddItem(ctx context.Context, userID string, in ItemInput) (item *domain.Item, err error) {
	err = s.in.Run(ctx, "grocery.add", "AddGroceryItem", func(ctx context.Context, o *application.Outcome) error {
		item, err = domain.NewItem(s.ids.NewID(), userID, in.Name, in.Quantity, in.Unit)
		if err != nil {
			o.Fail("rejected", "VALIDATION_FAILED")
			return err
		}
		item.Category = strings.TrimSpace(in.Category)
		item.PurchaseDate = in.PurchaseDate
		item.ExpiryDate = in.ExpiryDate

		if err := s.repo.Insert(ctx, item); err != nil {
			o.Fail("error", "REPO_INSERT_FAILED")
			return fmt.Errorf("grocery: insert: %w", err)
		}
		o.With(observability.F("item_id", item.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, userID, id string, in ItemInput) (item *domain.Item, err error) {
	err = s.in.Run(ctx, "grocery.update", "UpdateGroceryItem", func(ctx context.Context, o *application.Outcome) error {
		item, err = s.owned(ctx, o, userID, id)
		if err != nil {
			return err
		}
		if err := item.Revise(in.Name, in.Quantity, in.Unit, strings.TrimSpace(in.Category), in.PurchaseDate, in.ExpiryDate); err != nil {
			o.Fail("rejected", "VALIDATION_FAILED")
			return err
		}
		if err := s.repo.Update(ctx, item); err != nil {
			o.Fail("error", "REPO_UPDATE_FAILED")
			return fmt.Errorf("grocery: update: %w", err)
		}
		return nil
	}, attribute.String("grocery.id", id))
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, userID, id string) error {
	return s.in.Run(ctx, "grocery.delete", "DeleteGroceryItem", func(ctx context.Context, o *application.Outcome) error {
		if _, err := s.owned(ctx, o, userID, id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			o.Fail("error", "REPO_DELETE_FAILED")
			return fmt.Errorf("grocery: delete: %w", err)
		}
		return nil
	}, attribute.String("grocery.id", id))
}

func (s *Service) owned(ctx context.Context, o *application.Outcome, userID, id string) (*domain.Item, error) {
	item, err := s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		o.Fail("rejected", "NOT_FOUND")
		return nil, domain.ErrNotFound
	case err != nil:
		o.Fail("error", "REPO_GET_FAILED")
		return nil, fmt.Errorf("grocery: get: %w", err)
	case item.UserID != userID:
		o.Fail("rejected", "NOT_FOUND")
		return nil, domain.ErrNotFound
	}
	return item, nil
}
