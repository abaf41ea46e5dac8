package readpref

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ikmak/topologycore/description"
	"github.com/ikmak/topologycore/tag"
)

// idleWritePeriod is the assumed interval between writes on an otherwise
// idle primary, used to estimate a secondary's staleness.
const idleWritePeriod = 10 * time.Second

var errMaxStalenessTooLow = errors.New("readpref: max staleness must be at least 90s")

// Selector returns a function suitable for use as a topology.Selector:
// given a topology description and a list of candidate
// servers, it narrows the candidates to those eligible under rp.
func Selector(rp *ReadPref) func(description.Topology, []description.Server) ([]description.Server, error) {
	return func(t description.Topology, candidates []description.Server) ([]description.Server, error) {
		if _, set := rp.MaxStaleness(); set {
			if err := verifyMaxStaleness(rp, t); err != nil {
				return nil, err
			}
		}

		switch t.Type {
		case description.Single:
			return candidates, nil
		case description.RSNoPrimary, description.RSWithPrimary:
			return selectForReplicaSet(rp, candidates)
		case description.Sharded:
			return selectByType(candidates, description.Mongos), nil
		}
		return nil, nil
	}
}

func selectForReplicaSet(rp *ReadPref, candidates []description.Server) ([]description.Server, error) {
	switch rp.Mode() {
	case PrimaryMode:
		return selectByType(candidates, description.RSPrimary), nil
	case PrimaryPreferredMode:
		if primary := selectByType(candidates, description.RSPrimary); len(primary) > 0 {
			return primary, nil
		}
		return selectByTagSet(selectSecondaries(rp, candidates), rp.TagSets()), nil
	case SecondaryPreferredMode:
		selected := selectByTagSet(selectSecondaries(rp, candidates), rp.TagSets())
		if len(selected) > 0 {
			return selected, nil
		}
		return selectByType(candidates, description.RSPrimary), nil
	case SecondaryMode:
		return selectByTagSet(selectSecondaries(rp, candidates), rp.TagSets()), nil
	case NearestMode:
		selected := selectByType(candidates, description.RSPrimary)
		selected = append(selected, selectSecondaries(rp, candidates)...)
		return selectByTagSet(selected, rp.TagSets()), nil
	}
	return nil, errors.Errorf("readpref: unsupported mode %d", rp.Mode())
}

func selectSecondaries(rp *ReadPref, candidates []description.Server) []description.Server {
	secondaries := selectByType(candidates, description.RSSecondary)
	if len(secondaries) == 0 {
		return secondaries
	}

	maxStaleness, set := rp.MaxStaleness()
	if !set {
		return secondaries
	}

	primaries := selectByType(candidates, description.RSPrimary)
	if len(primaries) == 0 {
		baseTime := secondaries[0].LastWriteTime
		for _, s := range secondaries[1:] {
			if s.LastWriteTime.After(baseTime) {
				baseTime = s.LastWriteTime
			}
		}

		var selected []description.Server
		for _, s := range secondaries {
			staleness := baseTime.Sub(s.LastWriteTime) + s.HeartbeatInterval
			if staleness <= maxStaleness {
				selected = append(selected, s)
			}
		}
		return selected
	}

	primary := primaries[0]
	var selected []description.Server
	for _, s := range secondaries {
		staleness := s.LastUpdateTime.Sub(s.LastWriteTime) - primary.LastUpdateTime.Sub(primary.LastWriteTime) + s.HeartbeatInterval
		if staleness <= maxStaleness {
			selected = append(selected, s)
		}
	}
	return selected
}

func selectByTagSet(candidates []description.Server, tagSets []tag.Set) []description.Server {
	if len(tagSets) == 0 {
		return candidates
	}

	for _, ts := range tagSets {
		var results []description.Server
		for _, s := range candidates {
			if len(s.Tags) > 0 && s.Tags.ContainsAll(ts) {
				results = append(results, s)
			}
		}
		if len(results) > 0 {
			return results
		}
	}
	return nil
}

func selectByType(candidates []description.Server, typ description.ServerType) []description.Server {
	var result []description.Server
	for _, s := range candidates {
		if s.Type == typ {
			result = append(result, s)
		}
	}
	return result
}

func verifyMaxStaleness(rp *ReadPref, t description.Topology) error {
	maxStaleness, set := rp.MaxStaleness()
	if !set {
		return nil
	}
	if maxStaleness < 90*time.Second {
		return errMaxStalenessTooLow
	}

	servers := t.Servers()
	if len(servers) < 1 {
		return nil
	}
	hb := servers[0].HeartbeatInterval
	if maxStaleness < hb+idleWritePeriod {
		return errors.Errorf("readpref: max staleness (%s) must be at least the heartbeat interval (%s) plus idle write period (%s)",
			maxStaleness, hb, idleWritePeriod)
	}
	return nil
}
