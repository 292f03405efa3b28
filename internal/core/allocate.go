package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/JonMunkholm/PartsHole/internal/logging"
	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/JonMunkholm/PartsHole/internal/store"
)

// AllocatePartNumber issues the next part number in (category, subCategory)
// for a user and links it to the user's PartNumbers list.
//
// The next sequence is one past the highest the user already holds in that
// scope, and never below anything the store has recorded for the scope. A
// concurrent allocation that wins the same sequence makes the insert fail on
// the unique index; the scope is then reloaded and the allocation retried.
// A scope that already reached sequence 9999 is full.
func (s *Service) AllocatePartNumber(ctx context.Context, userID string, category, subCategory int) (model.PartNumber, error) {
	if userID == "" {
		return model.PartNumber{}, &ValidationError{Field: "user_id", Message: "is required"}
	}
	if category < 0 || category > model.MaxCategory {
		return model.PartNumber{}, &ValidationError{
			Field:   "category",
			Value:   strconv.Itoa(category),
			Message: fmt.Sprintf("must be between 0 and %d", model.MaxCategory),
		}
	}
	if subCategory < 0 || subCategory > model.MaxSubCategory {
		return model.PartNumber{}, &ValidationError{
			Field:   "subcategory",
			Value:   strconv.Itoa(subCategory),
			Message: fmt.Sprintf("must be between 0 and %d", model.MaxSubCategory),
		}
	}

	c, sc := uint8(category), uint8(subCategory)
	log := logging.WithFields(ctx, "user_id", userID, "category", c, "subcategory", sc)

	for attempt := 1; attempt <= s.opts.AllocateMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.PartNumber{}, err
		}

		seq, err := s.nextSequence(ctx, userID, c, sc)
		if err != nil {
			return model.PartNumber{}, err
		}
		if seq > model.MaxSequence {
			log.Warn("part number scope exhausted")
			return model.PartNumber{}, &ValidationError{
				Field:   "sequence",
				Value:   fmt.Sprintf("%02d%02d", c, sc),
				Message: fmt.Sprintf("scope is full, sequences stop at %d", model.MaxSequence),
			}
		}

		pn := model.PartNumber{
			ID:          s.newID(),
			OwnerID:     userID,
			Category:    c,
			SubCategory: sc,
			Sequence:    seq,
		}

		err = s.store.PartNumbers().Insert(ctx, pn)
		if errors.Is(err, store.ErrDuplicateKey) {
			log.Debug("part number taken by concurrent allocation, retrying",
				"sequence", seq, "attempt", attempt)
			continue
		}
		if err != nil {
			return model.PartNumber{}, fmt.Errorf("insert part number: %w", err)
		}

		if err := s.linkPartNumber(ctx, userID, pn.ID); err != nil {
			log.Error("part number allocated but not linked", "part_number_id", pn.ID, "error", err)
			return model.PartNumber{}, &ConcurrencyConflictError{
				Op:  "link part number",
				ID:  pn.ID,
				Err: fmt.Errorf("part number %s is orphaned: %w", pn, err),
			}
		}

		log.Info("part number allocated", "part_number", pn.String(), "part_number_id", pn.ID)
		return pn, nil
	}

	log.Warn("part number allocation retries exhausted", "retries", s.opts.AllocateMaxRetries)
	return model.PartNumber{}, &ConcurrencyConflictError{
		Op:  "allocate part number",
		ID:  fmt.Sprintf("%s/%02d%02d", userID, c, sc),
		Err: fmt.Errorf("gave up after %d attempts", s.opts.AllocateMaxRetries),
	}
}

// nextSequence computes the candidate sequence from the user's own part
// numbers and lifts it past any orphaned allocation in the same scope.
func (s *Service) nextSequence(ctx context.Context, userID string, category, subCategory uint8) (uint32, error) {
	u, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return 0, notFound(err, "user", userID)
	}

	owned, err := s.store.PartNumbers().GetMany(ctx, u.PartNumbers)
	if err != nil {
		return 0, fmt.Errorf("load part numbers of user %s: %w", userID, err)
	}
	seq := model.NextSequence(owned, category, subCategory)

	highest, err := s.store.PartNumbers().MaxSequence(ctx, userID, category, subCategory)
	if err != nil {
		return 0, fmt.Errorf("max sequence: %w", err)
	}
	if highest >= seq {
		seq = highest + 1
	}
	return seq, nil
}

// linkPartNumber appends id to the user's PartNumbers list. A concurrent edit
// of the same list makes the compare-and-set miss; the list is then reloaded
// and the append tried again.
func (s *Service) linkPartNumber(ctx context.Context, userID, id string) error {
	var lastErr error
	for attempt := 0; attempt < s.opts.AllocateMaxRetries; attempt++ {
		err := s.AppendReference(ctx, userID, id, model.SelectPartNumbers)
		if err == nil {
			return nil
		}
		var conflict *ConcurrencyConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// GetPartNumber loads one part number by id.
func (s *Service) GetPartNumber(ctx context.Context, id string) (model.PartNumber, error) {
	pn, err := s.store.PartNumbers().Get(ctx, id)
	if err != nil {
		return model.PartNumber{}, notFound(err, "part number", id)
	}
	return pn, nil
}

// ParsePartNumber decodes a "CCSS-NNNN" value and returns the part number
// with its canonical form.
func ParsePartNumber(value string) (model.PartNumber, string) {
	pn := model.ParsePartNumber(value)
	return pn, pn.String()
}
