package readpref

import (
	"time"

	"github.com/ikmak/topologycore/tag"
)

// Option configures a ReadPref under construction.
type Option func(*ReadPref)

// WithMaxStaleness sets the maximum replication lag a secondary may have
// and still be considered eligible.
func WithMaxStaleness(d time.Duration) Option {
	return func(rp *ReadPref) {
		rp.maxStaleness = d
		rp.maxStalenessSet = true
	}
}

// WithTags sets a single tag set used to match a server. The last call to
// WithTags or WithTagSets wins.
func WithTags(pairs ...string) Option {
	return WithTagSets(tag.NewSet(pairs...))
}

// WithTagSets sets the tag sets used to match a server, tried in order
// until one matches at least one server. The last call to WithTags or
// WithTagSets wins.
func WithTagSets(tagSets ...tag.Set) Option {
	return func(rp *ReadPref) {
		rp.tagSets = tagSets
	}
}
