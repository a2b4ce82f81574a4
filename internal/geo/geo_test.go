package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utm(name string, zone float64) *SpatialReference {
	return &SpatialReference{
		Name:   name,
		Datum:  "WGS84",
		Method: "TransverseMercator",
		Units:  "m",
		Params: map[string]float64{"zone": zone, "scale": 0.9996, "false_easting": 500000},
	}
}

func TestEquivalentProjections(t *testing.T) {
	tests := []struct {
		name string
		a, b *SpatialReference
		want bool
	}{
		{"identical", utm("UTM33N", 33), utm("UTM33N", 33), true},
		{"names differ", utm("UTM33N", 33), utm("WGS 84 / UTM zone 33N", 33), true},
		{"param within tolerance", utm("a", 33), utm("b", 33+1e-12), true},
		{"param differs", utm("a", 33), utm("a", 32), false},
		{"both nil", nil, nil, true},
		{"one nil", utm("a", 33), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EquivalentProjections(tt.a, tt.b))
			assert.Equal(t, tt.want, EquivalentProjections(tt.b, tt.a), "symmetric")
		})
	}
}

func TestEquivalentProjections_DatumMethodUnits(t *testing.T) {
	base := utm("a", 33)

	datum := utm("a", 33)
	datum.Datum = "NAD83"
	assert.False(t, EquivalentProjections(base, datum))

	method := utm("a", 33)
	method.Method = "LambertConformalConic"
	assert.False(t, EquivalentProjections(base, method))

	units := utm("a", 33)
	units.Units = "ft"
	assert.False(t, EquivalentProjections(base, units))

	caseOnly := utm("a", 33)
	caseOnly.Datum = "wgs84"
	assert.True(t, EquivalentProjections(base, caseOnly))

	missing := utm("a", 33)
	delete(missing.Params, "scale")
	missing.Params["other"] = 1
	assert.False(t, EquivalentProjections(base, missing))
}

func TestSpatialReference_EncodeParse(t *testing.T) {
	sr := utm("UTM33N", 33)
	s, err := sr.Encode()
	require.NoError(t, err)

	got, err := ParseSpatialReference(s)
	require.NoError(t, err)
	assert.Equal(t, sr, got)

	_, err = ParseSpatialReference("{")
	assert.Error(t, err)
}

func TestVector(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 10, Y: 20, Z: 30}
	assert.Equal(t, Vector3{X: 9, Y: 18, Z: 27}, b.Sub(a))
	assert.Equal(t, b, a.Add(b.Sub(a)))
	assert.True(t, Vector3{}.IsZero())

	enc, err := EncodeVector(a)
	require.NoError(t, err)
	v, err := ParseVector(enc)
	require.NoError(t, err)
	assert.Equal(t, a, v)
}

func TestEncodeVector_RejectsNaN(t *testing.T) {
	_, err := EncodeVector(Vector3{X: math.NaN()})
	require.Error(t, err)

	_, err = EncodeVector(Vector3{Z: math.Inf(1)})
	require.Error(t, err)
}

func TestTransform_IdentityRotation(t *testing.T) {
	tr := Transform{Offset: Vector3{X: 5}, Rotation: Identity()}
	assert.True(t, tr.Rotation.IsIdentity())
	assert.Equal(t, Vector3{X: 6, Y: 1, Z: 1}, tr.Apply(Vector3{X: 1, Y: 1, Z: 1}))
	assert.False(t, Matrix3{}.IsIdentity())
}
