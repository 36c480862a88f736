package hwaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"00:11:22:33:44:55", "00:11:22:33:44:55"},
		{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF"},
		{"aa-bb-cc-dd-ee-ff", "AA:BB:CC:DD:EE:FF"},
		{"aabb.ccdd.eeff", "AA:BB:CC:DD:EE:FF"},
		{"  AA:BB:CC:DD:EE:FF  ", "AA:BB:CC:DD:EE:FF"},
		// Unparseable input passes through so unknown addresses surface as
		// not-found lookups rather than validation failures.
		{"aa:bb", "AA:BB"},
		{"unknown", "UNKNOWN"},
		{"", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, Canonical(tc.raw), "raw %q", tc.raw)
	}
}
