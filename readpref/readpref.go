package readpref

import (
	"fmt"
	"strings"
	"time"

	"github.com/ikmak/topologycore/tag"
)

// ReadPref determines which servers are considered suitable for a read
// operation.
type ReadPref struct {
	maxStaleness    time.Duration
	maxStalenessSet bool
	mode            Mode
	tagSets         []tag.Set
}

func new(mode Mode, opts ...Option) *ReadPref {
	rp := &ReadPref{mode: mode}
	for _, opt := range opts {
		opt(rp)
	}
	return rp
}

// Primary constructs a read preference with PrimaryMode.
func Primary() *ReadPref {
	return new(PrimaryMode)
}

// PrimaryPreferred constructs a read preference with PrimaryPreferredMode.
func PrimaryPreferred(opts ...Option) *ReadPref {
	return new(PrimaryPreferredMode, opts...)
}

// SecondaryPreferred constructs a read preference with SecondaryPreferredMode.
func SecondaryPreferred(opts ...Option) *ReadPref {
	return new(SecondaryPreferredMode, opts...)
}

// Secondary constructs a read preference with SecondaryMode.
func Secondary(opts ...Option) *ReadPref {
	return new(SecondaryMode, opts...)
}

// Nearest constructs a read preference with NearestMode.
func Nearest(opts ...Option) *ReadPref {
	return new(NearestMode, opts...)
}

// WithMode constructs a read preference with the given mode directly.
func WithMode(m Mode, opts ...Option) *ReadPref {
	return new(m, opts...)
}

// ModeFromString parses the textual form of a mode ("primary",
// "secondaryPreferred", ...), case-insensitively.
func ModeFromString(mode string) (Mode, error) {
	switch strings.ToLower(mode) {
	case "primary":
		return PrimaryMode, nil
	case "primarypreferred":
		return PrimaryPreferredMode, nil
	case "secondary":
		return SecondaryMode, nil
	case "secondarypreferred":
		return SecondaryPreferredMode, nil
	case "nearest":
		return NearestMode, nil
	}
	return 0, fmt.Errorf("readpref: unknown mode %q", mode)
}

// MaxStaleness returns the maximum staleness configured, and whether it
// was set at all.
func (r *ReadPref) MaxStaleness() (time.Duration, bool) {
	return r.maxStaleness, r.maxStalenessSet
}

// Mode returns the read preference's mode.
func (r *ReadPref) Mode() Mode {
	return r.mode
}

// TagSets returns the tag sets that must match, tried in order.
func (r *ReadPref) TagSets() []tag.Set {
	return r.tagSets
}
