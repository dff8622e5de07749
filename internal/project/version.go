package project

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a release version. Versions that parse as semantic versions
// compare numerically; anything else only compares for string equality.
type Version struct {
	raw string
	sv  *semver.Version
}

// ParseVersion never fails; unparseable versions are kept verbatim.
func ParseVersion(s string) Version {
	s = strings.TrimSpace(s)
	v := Version{raw: s}
	if sv, err := semver.NewVersion(s); err == nil {
		v.sv = sv
	}
	return v
}

func (v Version) String() string { return v.raw }

// Semantic reports whether the version parsed as a semantic version.
func (v Version) Semantic() bool { return v.sv != nil }

// Equal reports whether v and o denote the same release ("1.0" equals "1.0.0").
func (v Version) Equal(o Version) bool {
	if v.sv != nil && o.sv != nil {
		return v.sv.Equal(o.sv)
	}
	return strings.EqualFold(v.raw, o.raw)
}

// Compare returns -1, 0 or 1 and true when both versions are semantic.
// Otherwise ok is false.
func (v Version) Compare(o Version) (cmp int, ok bool) {
	if v.sv == nil || o.sv == nil {
		return 0, false
	}
	return v.sv.Compare(o.sv), true
}
