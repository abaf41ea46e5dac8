package description

import (
	"fmt"
	"strings"

	"github.com/ikmak/topologycore/address"
)

// TopologyType classifies the cluster as a whole. As with ServerType, the
// replica-set variants share a common bit so a caller can test "any kind
// of replica set" in one mask.
type TopologyType uint32

// TopologyType constants.
const (
	TopologyUnknown TopologyType = 0
	Single          TopologyType = 1
	replicaSet      TopologyType = 2
	RSNoPrimary     TopologyType = 4 + replicaSet
	RSWithPrimary   TopologyType = 8 + replicaSet
	Sharded         TopologyType = 256
)

func (t TopologyType) String() string {
	switch t {
	case TopologyUnknown:
		return "Unknown"
	case Single:
		return "Single"
	case RSNoPrimary:
		return "ReplicaSetNoPrimary"
	case RSWithPrimary:
		return "ReplicaSetWithPrimary"
	case Sharded:
		return "Sharded"
	}
	return "Unknown"
}

// Topology is an immutable snapshot of the whole cluster: its type and the
// most recent Server description known for each member address.
type Topology struct {
	Type TopologyType

	SetName string

	MaxSetVersion uint32
	MaxElectionID ElectionID

	LogicalSessionTimeoutMinutes *int64

	servers []Server
}

// New returns an empty Topology seeded with the given seed addresses, each
// initially Unknown, matching the state a freshly-opened topology is in
// before any heartbeat has completed.
func New(seeds []address.Address, setName string) Topology {
	t := Topology{SetName: setName}
	if setName != "" {
		t.Type = RSNoPrimary
	}
	for _, a := range seeds {
		t.servers = append(t.servers, Server{Address: a, Type: Unknown})
	}
	return t
}

// Servers returns the current set of known server descriptions.
func (t Topology) Servers() []Server {
	out := make([]Server, len(t.servers))
	copy(out, t.servers)
	return out
}

// Addresses returns the addresses of every currently known member.
func (t Topology) Addresses() []address.Address {
	out := make([]address.Address, len(t.servers))
	for i, s := range t.servers {
		out[i] = s.Address
	}
	return out
}

// Server returns the description known for addr, if any.
func (t Topology) Server(addr address.Address) (Server, bool) {
	for _, s := range t.servers {
		if s.Address == addr {
			return s, true
		}
	}
	return Server{}, false
}

func (t Topology) findIndex(addr address.Address) int {
	for i, s := range t.servers {
		if s.Address == addr {
			return i
		}
	}
	return -1
}

func (t Topology) findPrimary() (Server, bool) {
	for _, s := range t.servers {
		if s.Type == RSPrimary {
			return s, true
		}
	}
	return Server{}, false
}

// clone returns a Topology sharing no backing array with t, so callers can
// mutate the copy's servers slice freely.
func (t Topology) clone() Topology {
	c := t
	c.servers = make([]Server, len(t.servers))
	copy(c.servers, t.servers)
	return c
}

func (t *Topology) setServer(s Server) {
	if i := t.findIndex(s.Address); i >= 0 {
		t.servers[i] = s
		return
	}
	t.servers = append(t.servers, s)
}

func (t *Topology) removeServer(addr address.Address) {
	i := t.findIndex(addr)
	if i < 0 {
		return
	}
	t.servers = append(t.servers[:i], t.servers[i+1:]...)
}

func (t Topology) String() string {
	parts := make([]string, len(t.servers))
	for i, s := range t.servers {
		parts[i] = fmt.Sprintf("%s:%s", s.Address, s.Type)
	}
	return fmt.Sprintf("%s[%s]", t.Type, strings.Join(parts, ", "))
}

// recomputeLogicalSessionTimeout sets LogicalSessionTimeoutMinutes to the
// minimum value reported by any data-bearing server, or nil if there are
// no data-bearing servers or any one of them hasn't reported a value.
func (t *Topology) recomputeLogicalSessionTimeout() {
	var min *int64
	for _, s := range t.servers {
		if !s.Type.IsDataBearing() {
			continue
		}
		if s.LogicalSessionTimeoutMinutes == nil {
			t.LogicalSessionTimeoutMinutes = nil
			return
		}
		if min == nil || *s.LogicalSessionTimeoutMinutes < *min {
			min = s.LogicalSessionTimeoutMinutes
		}
	}
	t.LogicalSessionTimeoutMinutes = min
}

func (t *Topology) addServersFromMembers(members []address.Address) {
	for _, m := range members {
		if t.findIndex(m) < 0 {
			t.servers = append(t.servers, Server{Address: m, Type: Unknown})
		}
	}
}

// removeServersNotIn drops every server not named in members, except keep,
// which is always retained (it is the server whose report this is).
func (t *Topology) removeServersNotIn(members []address.Address, keep address.Address) {
	allowed := make(map[address.Address]bool, len(members)+1)
	for _, m := range members {
		allowed[m] = true
	}
	allowed[keep] = true

	kept := t.servers[:0]
	for _, s := range t.servers {
		if allowed[s.Address] {
			kept = append(kept, s)
		}
	}
	t.servers = kept
}
