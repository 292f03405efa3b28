package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/logging"
	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/JonMunkholm/PartsHole/internal/store"
)

// CreateUser stores a new user with empty reference lists.
func (s *Service) CreateUser(ctx context.Context, name string) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, &ValidationError{Field: "name", Message: "is required"}
	}

	u := model.User{
		ID:          s.newID(),
		Name:        name,
		Parts:       []string{},
		Invoices:    []string{},
		Bins:        []string{},
		PartNumbers: []string{},
	}
	if err := s.store.Users().Insert(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return model.User{}, &ConcurrencyConflictError{Op: "create user", ID: u.ID, Err: err}
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}

	logging.WithFields(ctx, "user_id", u.ID).Info("user created", "name", name)
	return u, nil
}

// GetUser returns a stored user.
func (s *Service) GetUser(ctx context.Context, userID string) (model.User, error) {
	u, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return model.User{}, notFound(err, "user", userID)
	}
	return u, nil
}

// AppendReference adds modelID to the end of the selected list. Duplicates are
// not filtered.
func (s *Service) AppendReference(ctx context.Context, userID, modelID string, sel model.Selector) error {
	return s.updateReferences(ctx, "append reference", userID, modelID, sel,
		func(u *model.User) ([]string, error) {
			return sel.AppendRef(u, modelID)
		})
}

// RemoveReference drops the first occurrence of modelID from the selected
// list. An id that is not present is NotFound and nothing is written.
func (s *Service) RemoveReference(ctx context.Context, userID, modelID string, sel model.Selector) error {
	return s.updateReferences(ctx, "remove reference", userID, modelID, sel,
		func(u *model.User) ([]string, error) {
			refs, found, err := sel.RemoveRef(u, modelID)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, &NotFoundError{Kind: "reference", ID: modelID}
			}
			return refs, nil
		})
}

// updateReferences loads the user, applies mutate to the selected list and
// writes back only that list. The write is conditional on the list being
// unchanged since it was read.
func (s *Service) updateReferences(ctx context.Context, op, userID, modelID string, sel model.Selector,
	mutate func(*model.User) ([]string, error)) error {

	if !sel.Valid() {
		return &ValidationError{Field: "selector", Value: string(sel), Message: "unknown reference list"}
	}
	if strings.TrimSpace(modelID) == "" {
		return &ValidationError{Field: "model_id", Message: "is required"}
	}

	u, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return notFound(err, "user", userID)
	}

	before, err := sel.Refs(&u)
	if err != nil {
		return err
	}
	before = append([]string(nil), before...)

	after, err := mutate(&u)
	if err != nil {
		return err
	}

	res, err := s.store.Users().SetReferences(ctx, userID, sel.Key(), before, after)
	if err != nil {
		return fmt.Errorf("%s for user %s: %w", op, userID, err)
	}
	if !res.Acknowledged {
		return &ConcurrencyConflictError{Op: op, ID: userID, Err: store.ErrNotAcknowledged}
	}
	if res.Modified == 0 {
		return &ConcurrencyConflictError{Op: op, ID: userID, Err: errors.New("reference list changed concurrently")}
	}

	logging.WithFields(ctx, "user_id", userID).Debug("references updated",
		"op", op, "selector", string(sel), "model_id", modelID, "count", len(after))
	return nil
}
