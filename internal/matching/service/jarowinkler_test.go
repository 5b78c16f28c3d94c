package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroWinklerKnownValues(t *testing.T) {
	assert.InDelta(t, 0.9611, jaroWinkler("MARTHA", "MARHTA"), 1e-4)
	assert.InDelta(t, 0.98333, jaroWinkler("PARAFUSO M8", "PARAFUSO M8 "), 1e-4)
	assert.Equal(t, 0.0, jaroWinkler("ABC", "XYZ"))
}

func TestJaroWinklerBounds(t *testing.T) {
	assert.Equal(t, 1.0, jaroWinkler("PARAFUSO", "PARAFUSO"))
	assert.Equal(t, 0.0, jaroWinkler("", ""))
	assert.Equal(t, 0.0, jaroWinkler("", "A"))
	assert.Less(t, jaroWinkler("PARAFUSO", "PARAFUSA"), 1.0)
	// общий префикс из 4+ символов не должен дотягивать до 1
	assert.Less(t, jaroWinkler("ABCDX", "ABCDY"), 1.0)
}

func TestJaroWinklerSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"PARAFUSO SEXTAVADO", "SEXTAVADO PARAFUSO"},
		{"DIXON", "DICKSONX"},
		{"ARRUELA", "ARRUELA LISA"},
		{"TUBO PVC 20MM", "TUBO PVC 25MM"},
	}
	for _, p := range pairs {
		assert.Equal(t, jaroWinkler(p[0], p[1]), jaroWinkler(p[1], p[0]), "%q/%q", p[0], p[1])
	}
}

func TestDamerauSimilarity(t *testing.T) {
	assert.Equal(t, 1, damerauLevenshtein("AB", "BA"))
	assert.InDelta(t, 1-1.0/12, damerauSimilarity("PARAFUSO M8", "PARAFUSO M8 "), 1e-9)
	assert.Equal(t, 1.0, damerauSimilarity("X", "X"))
	assert.Equal(t, 0.0, damerauSimilarity("", ""))
}
