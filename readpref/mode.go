// Package readpref determines which servers in a topology are eligible to
// serve a read, and provides the Selector adapter that plugs a read
// preference into the topology's server-selection engine.
package readpref

// Mode indicates the caller's preference on which kind of server to read
// from.
type Mode uint8

// Mode constants.
const (
	// PrimaryMode considers only the primary. This is the default.
	PrimaryMode Mode = iota
	// PrimaryPreferredMode prefers the primary but falls back to an
	// eligible secondary if none is available.
	PrimaryPreferredMode
	// SecondaryMode considers only secondaries.
	SecondaryMode
	// SecondaryPreferredMode prefers secondaries but falls back to the
	// primary if none is available.
	SecondaryPreferredMode
	// NearestMode considers the primary and all secondaries.
	NearestMode
)
