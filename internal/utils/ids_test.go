package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalID(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"  ":         "",
		"303":        "303",
		"303.0":      "303",
		"303,0":      "303",
		"303,00":     "303",
		" 12 ":       "12",
		"\u00a012.0": "12",
		"10.5":       "10.5",
		"A-17":       "A-17",
		"007":        "007",
		"MAT 001X":   "MAT 001X",
		"1.0.0":      "1.0.0",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalID(in), "input %q", in)
	}
}
