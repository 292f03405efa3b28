package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"golang.org/x/sync/errgroup"
)

// UserData is a user with every referenced record expanded.
type UserData struct {
	User        model.User         `json:"user"`
	Parts       []model.Part       `json:"parts"`
	Invoices    []model.Invoice    `json:"invoices"`
	Bins        []model.Bin        `json:"bins"`
	PartNumbers []model.PartNumber `json:"partNumbers"`

	// Missing counts references that no longer resolve to a record.
	Missing int `json:"missing"`
}

// GetUserData loads a user and expands its four reference lists. Lists keep
// the user's order except part numbers, which are sorted ascending.
func (s *Service) GetUserData(ctx context.Context, userID string) (UserData, error) {
	u, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return UserData{}, notFound(err, "user", userID)
	}

	data := UserData{User: u}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		parts, err := s.store.Parts().GetMany(gctx, u.Parts)
		if err != nil {
			return fmt.Errorf("load parts: %w", err)
		}
		data.Parts = parts
		return nil
	})
	g.Go(func() error {
		invoices, err := s.store.Invoices().GetMany(gctx, u.Invoices)
		if err != nil {
			return fmt.Errorf("load invoices: %w", err)
		}
		data.Invoices = invoices
		return nil
	})
	g.Go(func() error {
		bins, err := s.store.Bins().GetMany(gctx, u.Bins)
		if err != nil {
			return fmt.Errorf("load bins: %w", err)
		}
		data.Bins = bins
		return nil
	})
	g.Go(func() error {
		pns, err := s.store.PartNumbers().GetMany(gctx, u.PartNumbers)
		if err != nil {
			return fmt.Errorf("load part numbers: %w", err)
		}
		model.SortPartNumbers(pns)
		data.PartNumbers = pns
		return nil
	})

	if err := g.Wait(); err != nil {
		return UserData{}, err
	}

	data.Missing = len(u.Parts) - len(data.Parts) +
		len(u.Invoices) - len(data.Invoices) +
		len(u.Bins) - len(data.Bins) +
		len(u.PartNumbers) - len(data.PartNumbers)
	return data, nil
}

// CreatePart stores a part and links it to the user's Parts list.
func (s *Service) CreatePart(ctx context.Context, userID string, p model.Part) (model.Part, error) {
	if p.Name == "" {
		return model.Part{}, &ValidationError{Field: "name", Message: "is required"}
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return model.Part{}, err
	}
	p.ID = s.newID()
	if err := s.store.Parts().Insert(ctx, p); err != nil {
		return model.Part{}, fmt.Errorf("insert part: %w", err)
	}
	if err := s.AppendReference(ctx, userID, p.ID, model.SelectParts); err != nil {
		return model.Part{}, err
	}
	return p, nil
}

// CreateBin stores a bin and links it to the user's Bins list.
func (s *Service) CreateBin(ctx context.Context, userID string, b model.Bin) (model.Bin, error) {
	if b.Name == "" {
		return model.Bin{}, &ValidationError{Field: "name", Message: "is required"}
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return model.Bin{}, err
	}
	b.ID = s.newID()
	if err := s.store.Bins().Insert(ctx, b); err != nil {
		return model.Bin{}, fmt.Errorf("insert bin: %w", err)
	}
	if err := s.AppendReference(ctx, userID, b.ID, model.SelectBins); err != nil {
		return model.Bin{}, err
	}
	return b, nil
}
