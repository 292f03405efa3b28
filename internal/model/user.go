package model

import (
	"fmt"
	"slices"
	"strings"
)

// User owns four ordered reference lists. The lists hold ids only; the
// referenced records are not owned and are not cleaned up on delete.
type User struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Parts       []string `json:"parts"`
	Invoices    []string `json:"invoices"`
	Bins        []string `json:"bins"`
	PartNumbers []string `json:"partNumbers"`
}

// GetID implements Identifiable.
func (u User) GetID() string { return u.ID }

// Selector names one of a user's reference lists.
type Selector string

const (
	SelectParts       Selector = "parts"
	SelectInvoices    Selector = "invoices"
	SelectBins        Selector = "bins"
	SelectPartNumbers Selector = "partnumbers"
)

// refField binds a selector to the list it targets.
type refField struct {
	// Key is the storage field name. Stores write only this field.
	key string
	get func(*User) *[]string
}

var refTable = map[Selector]refField{
	SelectParts:       {key: "parts", get: func(u *User) *[]string { return &u.Parts }},
	SelectInvoices:    {key: "invoices", get: func(u *User) *[]string { return &u.Invoices }},
	SelectBins:        {key: "bins", get: func(u *User) *[]string { return &u.Bins }},
	SelectPartNumbers: {key: "part_numbers", get: func(u *User) *[]string { return &u.PartNumbers }},
}

// Selectors returns every known selector in a stable order.
func Selectors() []Selector {
	out := make([]Selector, 0, len(refTable))
	for s := range refTable {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// ParseSelector resolves a selector name case-insensitively. Underscores are
// ignored so "PART_NUMBERS" and "partNumbers" both resolve.
func ParseSelector(s string) (Selector, error) {
	norm := Selector(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")))
	if _, ok := refTable[norm]; !ok {
		return "", fmt.Errorf("unknown selector %q", s)
	}
	return norm, nil
}

// Valid reports whether s is a known selector.
func (s Selector) Valid() bool {
	_, ok := refTable[s]
	return ok
}

// Key returns the storage field name for s, or "" if s is unknown.
func (s Selector) Key() string {
	return refTable[s].key
}

// Refs returns the list on u that s selects.
func (s Selector) Refs(u *User) ([]string, error) {
	f, ok := refTable[s]
	if !ok {
		return nil, fmt.Errorf("unknown selector %q", string(s))
	}
	return *f.get(u), nil
}

// SetRefs replaces the list on u that s selects.
func (s Selector) SetRefs(u *User, refs []string) error {
	f, ok := refTable[s]
	if !ok {
		return fmt.Errorf("unknown selector %q", string(s))
	}
	*f.get(u) = refs
	return nil
}

// AppendRef appends id to the selected list. Duplicates are kept.
// It returns the new list.
func (s Selector) AppendRef(u *User, id string) ([]string, error) {
	refs, err := s.Refs(u)
	if err != nil {
		return nil, err
	}
	next := append(slices.Clip(refs), id)
	*refTable[s].get(u) = next
	return next, nil
}

// RemoveRef removes the first occurrence of id from the selected list.
// It reports whether id was present.
func (s Selector) RemoveRef(u *User, id string) ([]string, bool, error) {
	refs, err := s.Refs(u)
	if err != nil {
		return nil, false, err
	}
	i := slices.Index(refs, id)
	if i < 0 {
		return refs, false, nil
	}
	next := slices.Delete(slices.Clone(refs), i, i+1)
	*refTable[s].get(u) = next
	return next, true, nil
}
