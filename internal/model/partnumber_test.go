package model

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPartNumber(t *testing.T) {
	tests := []struct {
		pn   PartNumber
		want string
	}{
		{PartNumber{Category: 1, SubCategory: 1, Sequence: 1}, "0101-0001"},
		{PartNumber{Category: 1, SubCategory: 1, Sequence: 7}, "0101-0007"},
		{PartNumber{Category: 99, SubCategory: 0, Sequence: 9999}, "9900-9999"},
		{PartNumber{Category: 0, SubCategory: 0, Sequence: 0}, "0000-0000"},
		{PartNumber{Category: 12, SubCategory: 34, Sequence: 12345}, "1234-12345"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPartNumber(tt.pn))
			assert.Equal(t, tt.want, tt.pn.String())
		})
	}
}

func TestParsePartNumber(t *testing.T) {
	tests := []struct {
		in   string
		want PartNumber
	}{
		{"0101-0007", PartNumber{Category: 1, SubCategory: 1, Sequence: 7}},
		{"9912-0400", PartNumber{Category: 99, SubCategory: 12, Sequence: 400}},
		{" 0203-0001 ", PartNumber{Category: 2, SubCategory: 3, Sequence: 1}},
		// loose parsing: bad sub-fields stay zero
		{"xx01-0007", PartNumber{Category: 0, SubCategory: 1, Sequence: 7}},
		{"01yy-0007", PartNumber{Category: 1, SubCategory: 0, Sequence: 7}},
		{"0101-abcd", PartNumber{Category: 1, SubCategory: 1, Sequence: 0}},
		{"01-0007", PartNumber{Category: 1, SubCategory: 0, Sequence: 7}},
		// wrong segment count yields the zero value
		{"0101", PartNumber{}},
		{"01-01-0007", PartNumber{}},
		{"", PartNumber{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePartNumber(tt.in))
		})
	}
}

func TestPartNumber_RoundTrip(t *testing.T) {
	for c := 0; c <= MaxCategory; c += 7 {
		for s := 0; s <= MaxSubCategory; s += 11 {
			for _, seq := range []int{1, 9, 10, 99, 100, 999, 1000, 9999} {
				in := fmt.Sprintf("%02d%02d-%04d", c, s, seq)
				require.Equal(t, in, FormatPartNumber(ParsePartNumber(in)))
			}
		}
	}
}

func TestPartNumber_CompositeOrdering(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	randomPN := func() PartNumber {
		return PartNumber{
			Category:    uint8(r.Intn(100)),
			SubCategory: uint8(r.Intn(100)),
			Sequence:    uint32(r.Intn(10000)),
		}
	}

	for i := 0; i < 1000; i++ {
		a, b := randomPN(), randomPN()
		assert.Equal(t, a.Composite() < b.Composite(), a.Less(b), "a=%s b=%s", a, b)
		assert.Equal(t, a.Composite() == b.Composite(), a.Equal(b), "a=%s b=%s", a, b)
	}
}

func TestPartNumber_Composite(t *testing.T) {
	pn := PartNumber{Category: 12, SubCategory: 34, Sequence: 56}
	assert.Equal(t, uint64(12_340_056), pn.Composite())
}

func TestPartNumber_EqualIgnoresIdentity(t *testing.T) {
	a := PartNumber{ID: "a", OwnerID: "u1", Category: 1, SubCategory: 2, Sequence: 3}
	b := PartNumber{ID: "b", OwnerID: "u2", Category: 1, SubCategory: 2, Sequence: 3}
	assert.True(t, a.Equal(b))
	assert.Zero(t, a.Compare(b))
}

func TestSortPartNumbers_Ascending(t *testing.T) {
	pns := []PartNumber{
		{Category: 2, SubCategory: 0, Sequence: 1},
		{Category: 1, SubCategory: 5, Sequence: 2},
		{Category: 1, SubCategory: 5, Sequence: 1},
		{Category: 0, SubCategory: 99, Sequence: 9999},
	}

	SortPartNumbers(pns)

	got := make([]string, len(pns))
	for i, pn := range pns {
		got[i] = pn.String()
	}
	assert.Equal(t, []string{"0099-9999", "0105-0001", "0105-0002", "0200-0001"}, got)
}

func TestNextSequence(t *testing.T) {
	pns := []PartNumber{
		{Category: 1, SubCategory: 1, Sequence: 1},
		{Category: 1, SubCategory: 1, Sequence: 4},
		{Category: 1, SubCategory: 2, Sequence: 9},
		{Category: 2, SubCategory: 1, Sequence: 7},
	}

	assert.Equal(t, uint32(5), NextSequence(pns, 1, 1))
	assert.Equal(t, uint32(10), NextSequence(pns, 1, 2))
	assert.Equal(t, uint32(1), NextSequence(pns, 3, 3))
	assert.Equal(t, uint32(1), NextSequence(nil, 1, 1))
}
