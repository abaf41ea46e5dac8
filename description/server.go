// Package description holds the immutable value types that make up the
// SDAM data model: per-server snapshots (Server) and the aggregate
// cluster-wide snapshot (Topology), along with the pure update function
// that advances a Topology from a single incoming Server description.
package description

import (
	"time"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/tag"
)

// UnsetRTT is the sentinel value for a round-trip time that has not yet
// been measured.
const UnsetRTT = -1 * time.Millisecond

// ServerType is a tagged variant describing the role a server plays.
// The bit-flag composition (RSPrimary/RSSecondary/RSArbiter/RSOther all
// carry the RSMember bit) mirrors how the teacher driver encodes
// TopologyType and lets callers test "is this any kind of replica set
// member" with a single mask.
type ServerType uint32

// ServerType constants.
const (
	Unknown     ServerType = 0
	Standalone  ServerType = 1
	Mongos      ServerType = 2
	rsMember    ServerType = 4
	RSPrimary   ServerType = 8 + rsMember
	RSSecondary ServerType = 16 + rsMember
	RSArbiter   ServerType = 32 + rsMember
	RSOther     ServerType = 64 + rsMember
	RSGhost     ServerType = 128 + rsMember
)

// IsReplicaSetMember reports whether t is any flavor of replica-set member.
func (t ServerType) IsReplicaSetMember() bool {
	return t&rsMember != 0
}

// IsDataBearing reports whether a server of this type holds data and thus
// counts toward the topology-wide LogicalSessionTimeoutMinutes (the
// minimum across every data-bearing member). Arbiters, ghosts, and other
// non-data-bearing replica set roles are excluded even though they carry
// the rsMember bit.
func (t ServerType) IsDataBearing() bool {
	switch t {
	case Standalone, Mongos, RSPrimary, RSSecondary:
		return true
	}
	return false
}

func (t ServerType) String() string {
	switch t {
	case Unknown:
		return "Unknown"
	case Standalone:
		return "Standalone"
	case Mongos:
		return "Mongos"
	case RSPrimary:
		return "RSPrimary"
	case RSSecondary:
		return "RSSecondary"
	case RSArbiter:
		return "RSArbiter"
	case RSOther:
		return "RSOther"
	case RSGhost:
		return "RSGhost"
	}
	return "Unknown"
}

// ElectionID is an opaque, totally-ordered election identifier. The real
// wire format is a 12-byte BSON ObjectID; since BSON encoding is out of
// scope for this core, higher layers hand us the raw 12 bytes and we treat
// them as an ordered value via lexicographic byte comparison, exactly the
// ordering BSON ObjectIDs have.
type ElectionID [12]byte

// Compare returns -1, 0, or 1 as e is less than, equal to, or greater than
// other, lexicographically over the raw bytes.
func (e ElectionID) Compare(other ElectionID) int {
	for i := range e {
		if e[i] != other[i] {
			if e[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether e is the zero ElectionID (i.e. absent).
func (e ElectionID) IsZero() bool {
	return e == ElectionID{}
}

// IsMasterResponse is the minimal subset of an isMaster/hello reply the
// topology core needs in order to build a Server description. Decoding
// the wire response into this shape is the caller's (or the monitoring
// transport's) responsibility; the codec itself is out of scope here.
type IsMasterResponse struct {
	OK                          bool
	IsMaster                    bool
	Secondary                   bool
	Hidden                      bool
	ArbiterOnly                 bool
	IsReplicaSet                bool
	Msg                         string
	SetName                     string
	SetVersion                  uint32
	ElectionID                  ElectionID
	Me                          string
	Hosts                       []string
	Passives                    []string
	Arbiters                    []string
	Tags                        map[string]string
	MinWireVersion              int32
	MaxWireVersion              int32
	MaxBSONObjectSize           uint32
	MaxMessageSizeBytes         uint32
	MaxWriteBatchSize           uint32
	LastWriteDate               time.Time
	LogicalSessionTimeoutMinutes *int64
}

// Server is an immutable snapshot of one server's last known state, built
// from its most recent isMaster response (or from an error if the
// heartbeat failed). Two Server values with equal fields are
// interchangeable.
type Server struct {
	Address address.Address

	Type ServerType

	AverageRTT    time.Duration
	AverageRTTSet bool

	CanonicalAddress address.Address
	SetName          string
	SetVersion       uint32
	ElectionID       ElectionID

	Hosts    []address.Address
	Passives []address.Address
	Arbiters []address.Address
	Members  []address.Address

	Tags tag.Set

	LogicalSessionTimeoutMinutes *int64

	HeartbeatInterval time.Duration
	LastUpdateTime    time.Time
	LastWriteTime     time.Time

	MaxBatchCount   uint32
	MaxDocumentSize uint32
	MaxMessageSize  uint32

	MinWireVersion int32
	MaxWireVersion int32

	LastError error
}

// SetAverageRTT returns a copy of s with its round-trip time updated.
func (s Server) SetAverageRTT(rtt time.Duration) Server {
	s.AverageRTT = rtt
	s.AverageRTTSet = rtt != UnsetRTT
	return s
}

// NewServer builds a Server description from an isMaster response
// received from addr. A nil response or a non-nil lastErr (heartbeat
// failure) yields an Unknown-typed Server carrying lastErr; a response
// with OK false yields an Unknown-typed Server carrying a "not ok" error.
func NewServer(addr address.Address, resp *IsMasterResponse, lastErr error) Server {
	if resp == nil || lastErr != nil {
		return Server{Address: addr, Type: Unknown, LastError: lastErr}
	}
	if !resp.OK {
		return Server{Address: addr, Type: Unknown, LastError: errNotOK}
	}

	s := Server{
		Address:                       addr,
		CanonicalAddress:              address.Address(resp.Me).Canonicalize(),
		SetName:                       resp.SetName,
		SetVersion:                    resp.SetVersion,
		ElectionID:                    resp.ElectionID,
		Tags:                          tag.NewSetFromMap(resp.Tags),
		LogicalSessionTimeoutMinutes:  resp.LogicalSessionTimeoutMinutes,
		LastUpdateTime:                time.Now().UTC(),
		LastWriteTime:                 resp.LastWriteDate,
		MaxBatchCount:                 resp.MaxWriteBatchSize,
		MaxDocumentSize:               resp.MaxBSONObjectSize,
		MaxMessageSize:                resp.MaxMessageSizeBytes,
		MinWireVersion:                resp.MinWireVersion,
		MaxWireVersion:                resp.MaxWireVersion,
	}
	if s.CanonicalAddress == "" {
		s.CanonicalAddress = addr
	}

	for _, h := range resp.Hosts {
		s.Hosts = append(s.Hosts, address.Address(h).Canonicalize())
	}
	for _, p := range resp.Passives {
		s.Passives = append(s.Passives, address.Address(p).Canonicalize())
	}
	for _, a := range resp.Arbiters {
		s.Arbiters = append(s.Arbiters, address.Address(a).Canonicalize())
	}
	s.Members = append(s.Members, s.Hosts...)
	s.Members = append(s.Members, s.Passives...)
	s.Members = append(s.Members, s.Arbiters...)

	switch {
	case resp.IsReplicaSet:
		s.Type = RSGhost
	case resp.SetName != "":
		switch {
		case resp.IsMaster:
			s.Type = RSPrimary
		case resp.Hidden:
			s.Type = RSOther
		case resp.Secondary:
			s.Type = RSSecondary
		case resp.ArbiterOnly:
			s.Type = RSArbiter
		default:
			s.Type = RSOther
		}
	case resp.Msg == "isdbgrid":
		s.Type = Mongos
	default:
		s.Type = Standalone
	}

	return s
}

var errNotOK = notOKError{}

type notOKError struct{}

func (notOKError) Error() string { return "isMaster response was not ok" }
