// Package geo holds the small amount of geolocation a repository carries:
// a global origin offset and an optional projected spatial reference.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultTolerance bounds parameter differences treated as equal.
const DefaultTolerance = 1e-9

// Vector3 is a point or offset in repository coordinates (meters).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// IsZero reports whether all components are zero.
func (v Vector3) IsZero() bool {
	return v == Vector3{}
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Matrix3 is a row-major 3x3 rotation.
type Matrix3 [3][3]float64

// Identity returns the identity rotation.
func Identity() Matrix3 {
	return Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// IsIdentity reports whether m is the identity within tolerance.
func (m Matrix3) IsIdentity() bool {
	id := Identity()
	for i := range m {
		for j := range m[i] {
			if math.Abs(m[i][j]-id[i][j]) > DefaultTolerance {
				return false
			}
		}
	}
	return true
}

// Apply rotates v.
func (m Matrix3) Apply(v Vector3) Vector3 {
	return Vector3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Transform maps source coordinates into destination coordinates: rotate,
// then offset.
type Transform struct {
	Offset   Vector3 `json:"offset"`
	Rotation Matrix3 `json:"rotation"`
}

// Apply maps p through the transform.
func (t Transform) Apply(p Vector3) Vector3 {
	return t.Rotation.Apply(p).Add(t.Offset)
}

// SpatialReference describes a projected coordinate system.
type SpatialReference struct {
	// Name is informational only; two references with different names can
	// still be equivalent.
	Name   string             `json:"name,omitempty"`
	Datum  string             `json:"datum"`
	Method string             `json:"method"`
	Units  string             `json:"units"`
	Params map[string]float64 `json:"params,omitempty"`
}

// ParseSpatialReference decodes the JSON form stored in repository props.
func ParseSpatialReference(s string) (*SpatialReference, error) {
	var sr SpatialReference
	if err := json.Unmarshal([]byte(s), &sr); err != nil {
		return nil, fmt.Errorf("parse spatial reference: %w", err)
	}
	return &sr, nil
}

// Encode renders the JSON form stored in repository props. Params are
// emitted in sorted key order by encoding/json.
func (sr *SpatialReference) Encode() (string, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return "", fmt.Errorf("encode spatial reference: %w", err)
	}
	return string(data), nil
}

// ParseVector decodes the JSON form stored in repository props.
func ParseVector(s string) (Vector3, error) {
	var v Vector3
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Vector3{}, fmt.Errorf("parse vector: %w", err)
	}
	return v, nil
}

// EncodeVector renders the JSON form stored in repository props. NaN and
// infinite components have no JSON form and are rejected.
func EncodeVector(v Vector3) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode vector: %w", err)
	}
	return string(data), nil
}

// EquivalentProjections reports whether a and b describe the same
// projection: same datum, method and units (case-insensitive) and the same
// parameter set with values within DefaultTolerance. Names are ignored.
func EquivalentProjections(a, b *SpatialReference) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !strings.EqualFold(a.Datum, b.Datum) ||
		!strings.EqualFold(a.Method, b.Method) ||
		!strings.EqualFold(a.Units, b.Units) {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for _, k := range sortedKeys(a.Params) {
		bv, ok := b.Params[k]
		if !ok || math.Abs(a.Params[k]-bv) > DefaultTolerance {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
