package importer

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestDecodingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "UTF-8 BOM stripped",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("qty,part")...),
			expected: "qty,part",
		},
		{
			name:     "no BOM passes through",
			input:    []byte("qty,part"),
			expected: "qty,part",
		},
		{
			name:     "UTF-16 LE",
			input:    []byte{0xFF, 0xFE, 'q', 0, 't', 0, 'y', 0},
			expected: "qty",
		},
		{
			name:     "UTF-16 BE",
			input:    []byte{0xFE, 0xFF, 0, 'q', 0, 't', 0, 'y'},
			expected: "qty",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewDecodingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "valid ASCII",
			input:    []byte("10,RES 10K"),
			expected: "10,RES 10K",
		},
		{
			name:     "valid multibyte",
			input:    []byte("10,RES 10KΩ ±5%"),
			expected: "10,RES 10KΩ ±5%",
		},
		{
			name:     "Latin-1 byte replaced",
			input:    []byte{'1', '0', 0xB5, 'F'},
			expected: "10?F",
		},
		{
			name:     "truncated rune at EOF replaced",
			input:    []byte{'a', 0xE2, 0x84},
			expected: "a??",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_RuneSplitAcrossReads(t *testing.T) {
	input := "ΩΩΩ µF ±"

	// OneByteReader forces every multi-byte rune to straddle reads.
	result, err := io.ReadAll(NewUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("got %q, want %q", string(result), input)
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input), 0)

	n, err := io.Copy(io.Discard, reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1000 || reader.BytesRead != 1000 {
		t.Errorf("read %d, BytesRead %d, want 1000", n, reader.BytesRead)
	}
}

func TestCountingReader_Limit(t *testing.T) {
	reader := NewCountingReader(strings.NewReader(strings.Repeat("x", 1000)), 100)

	_, err := io.Copy(io.Discard, reader)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestCountingReader_ExactLimitIsAllowed(t *testing.T) {
	reader := NewCountingReader(strings.NewReader(strings.Repeat("x", 100)), 100)

	if _, err := io.Copy(io.Discard, reader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWrapForParsing(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	result, err := io.ReadAll(WrapForParsing(bytes.NewReader(input), 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// BOM should be stripped, invalid byte replaced
	if string(result) != "he?lo" {
		t.Errorf("got %q, want %q", string(result), "he?lo")
	}
}
