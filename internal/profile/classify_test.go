package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	supported := Range{Min: MustParse("4.0.1.0"), Max: MustParse("4.1.2.0")}

	tests := []struct {
		stored string
		want   Status
	}{
		{"5.0.0.0", TooNew},
		{"4.2.0.0", TooNew},
		{"4.1.2.1", Success},
		{"4.1.3.0", Success},
		{"4.1.2.0", Success},
		{"4.1.1.9", UpgradeRecommended},
		{"4.1.0.0", UpgradeRecommended},
		{"4.0.9.9", UpgradeRequired},
		{"4.0.1.0", UpgradeRequired},
		{"4.0.0.9", UpgradeRequired},
		{"4.0.0.0", UpgradeRequired},
		{"3.9.9.9", TooOld},
		{"0.0.0.0", TooOld},
	}

	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(MustParse(tt.stored), supported))
		})
	}
}

func TestClassify_MultiMajorRange(t *testing.T) {
	supported := Range{Min: MustParse("3.0.0.0"), Max: MustParse("4.0.0.0")}

	assert.Equal(t, UpgradeRequired, Classify(MustParse("3.7.2.0"), supported))
	assert.Equal(t, Success, Classify(MustParse("4.0.0.0"), supported))
	assert.Equal(t, TooOld, Classify(MustParse("2.9.0.0"), supported))
}

// Every version in a small grid maps to exactly one known status, and the
// mapping does not change between calls.
func TestClassify_TotalAndDeterministic(t *testing.T) {
	supported := Range{Min: MustParse("1.1.0.0"), Max: MustParse("2.1.1.1")}

	for major := uint16(0); major <= 3; major++ {
		for wc := uint16(0); wc <= 2; wc++ {
			for minor := uint16(0); minor <= 2; minor++ {
				for sub := uint16(0); sub <= 2; sub++ {
					v := Version{major, wc, minor, sub}
					got := Classify(v, supported)
					_, known := statusNames[got]
					require.True(t, known, "unknown status for %s", v)
					assert.Equal(t, got, Classify(v, supported), "non-deterministic for %s", v)
				}
			}
		}
	}
}

func TestStatus_Predicates(t *testing.T) {
	assert.True(t, TooNew.Terminal())
	assert.True(t, TooOld.Terminal())
	assert.False(t, UpgradeRequired.Terminal())

	assert.True(t, UpgradeRequired.CanUpgrade())
	assert.True(t, UpgradeRecommended.CanUpgrade())
	assert.False(t, Success.CanUpgrade())

	assert.Equal(t, "TOO_NEW", TooNew.String())
	assert.Equal(t, "UNKNOWN", Status(99).String())
}
