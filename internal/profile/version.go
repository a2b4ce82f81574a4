// Package profile classifies a repository's stored schema profile version
// against the range the running library supports.
//
// Classification is pure decision logic. It performs no I/O; the repository
// open sequence reads the stored version and acts on the Status.
package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an ordered (major, writeCompat, minor, sub) tuple.
//
//   - Major: incompatible layout; older libraries cannot read newer majors.
//   - WriteCompat: older libraries of the same major must not write.
//   - Minor, Sub: additive changes; readable and writable by older libraries.
type Version struct {
	Major       uint16 `json:"major" yaml:"major"`
	WriteCompat uint16 `json:"write_compat" yaml:"write_compat"`
	Minor       uint16 `json:"minor" yaml:"minor"`
	Sub         uint16 `json:"sub" yaml:"sub"`
}

// Compare returns -1, 0 or 1 ordering v against o lexicographically.
func (v Version) Compare(o Version) int {
	a := [4]uint16{v.Major, v.WriteCompat, v.Minor, v.Sub}
	b := [4]uint16{o.Major, o.WriteCompat, o.Minor, o.Sub}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// IsZero reports whether v is the zero version (never written).
func (v Version) IsZero() bool {
	return v == Version{}
}

// String formats v as "major.writeCompat.minor.sub".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.WriteCompat, v.Minor, v.Sub)
}

// Parse reads a dotted version. Missing trailing components default to zero,
// so "4.1" parses as 4.1.0.0.
func Parse(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 4 || parts[0] == "" {
		return Version{}, fmt.Errorf("parse version %q: want 1 to 4 dotted components", s)
	}

	var vals [4]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("parse version %q: component %d: %w", s, i, err)
		}
		vals[i] = uint16(n)
	}
	return Version{Major: vals[0], WriteCompat: vals[1], Minor: vals[2], Sub: vals[3]}, nil
}

// MustParse is like Parse but panics on error.
// Use only for constants and in tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Range is the closed interval of stored versions a library understands.
// Max is the version the library writes.
type Range struct {
	Min Version
	Max Version
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v Version) bool {
	return !v.Less(r.Min) && !r.Max.Less(v)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Min, r.Max)
}
