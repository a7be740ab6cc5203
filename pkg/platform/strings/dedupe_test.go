package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{
			name:     "capabilities trimmed and deduped in order",
			input:    []string{" process_purchase", "manage_restrictions", "process_purchase ", ""},
			expected: []string{"process_purchase", "manage_restrictions"},
		},
		{
			name:     "case is preserved",
			input:    []string{"Verify", "verify"},
			expected: []string{"Verify", "verify"},
		},
		{name: "only blanks", input: []string{" ", ""}, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Nil(t, DedupeAndTrimLower(nil))
	assert.Equal(t, []string{"student", "resident"}, DedupeAndTrimLower([]string{" Student", "RESIDENT", "student", ""}))
}
