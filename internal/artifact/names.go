package artifact

import (
	"fmt"
	"strings"
)

// WheelName is a parsed wheel file name:
// {distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl
type WheelName struct {
	Distribution string
	Version      string
	Build        string
	Python       string
	ABI          string
	Platform     string
}

// ParseWheelName parses a wheel file name.
func ParseWheelName(name string) (WheelName, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".whl") {
		return WheelName{}, fmt.Errorf("not a wheel: %s", name)
	}
	parts := strings.Split(name[:len(name)-len(".whl")], "-")
	var w WheelName
	switch len(parts) {
	case 5:
		w = WheelName{parts[0], parts[1], "", parts[2], parts[3], parts[4]}
	case 6:
		w = WheelName{parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]}
	default:
		return WheelName{}, fmt.Errorf("malformed wheel name %q: expected 5 or 6 dash-separated fields, got %d", name, len(parts))
	}
	for _, f := range []string{w.Distribution, w.Version, w.Python, w.ABI, w.Platform} {
		if f == "" {
			return WheelName{}, fmt.Errorf("malformed wheel name %q: empty field", name)
		}
	}
	return w, nil
}

// SdistName is a parsed source distribution file name: {name}-{version}.tar.gz
// or .zip.
type SdistName struct {
	Distribution string
	Version      string
}

// ParseSdistName parses a source distribution file name. Legacy names with
// dashes in the distribution part are split at the last dash.
func ParseSdistName(name string) (SdistName, error) {
	lower := strings.ToLower(name)
	var stem string
	switch {
	case strings.HasSuffix(lower, ".tar.gz"):
		stem = name[:len(name)-len(".tar.gz")]
	case strings.HasSuffix(lower, ".zip"):
		stem = name[:len(name)-len(".zip")]
	default:
		return SdistName{}, fmt.Errorf("not a source distribution: %s", name)
	}
	i := strings.LastIndex(stem, "-")
	if i <= 0 || i == len(stem)-1 {
		return SdistName{}, fmt.Errorf("malformed sdist name %q", name)
	}
	return SdistName{Distribution: stem[:i], Version: stem[i+1:]}, nil
}
