package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "empty", input: []string{}, expected: []string{}},
		{name: "blanks dropped", input: []string{" ", "", "--no-sandbox"}, expected: []string{"--no-sandbox"}},
		{
			name:     "duplicates keep first position",
			input:    []string{" --no-sandbox", "--mute-audio", "--no-sandbox "},
			expected: []string{"--no-sandbox", "--mute-audio"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompactFields(tt.input))
		})
	}
}
