package timezone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Kyiv", "Europe/Kyiv"},
		{"berlin", "Europe/Berlin"},
		{"  New York  ", "America/New_York"},
		{"PST", "America/Los_Angeles"},
		{"Europe/Madrid", "Europe/Madrid"},
		{"Kyiv, Ukraine", "Europe/Kyiv"},
		{"somewhere on mars", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.input))
		})
	}
}

func TestResolve_ShortKeysNeedExactMatch(t *testing.T) {
	// "la" resolves only as a standalone token, not as a substring.
	assert.Equal(t, "America/Los_Angeles", Resolve("LA"))
	assert.Equal(t, "", Resolve("planet"))
}
