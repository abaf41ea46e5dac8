package readpref

import (
	"testing"
	"time"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
	"github.com/ikmak/topologycore/tag"
)

func buildTopology(servers ...description.Server) description.Topology {
	addrs := make([]address.Address, len(servers))
	for i, s := range servers {
		addrs[i] = s.Address
	}
	topo := description.New(addrs, "rs0")
	for _, s := range servers {
		topo = topo.Update(s)
	}
	return topo
}

func rsMembers(addrs ...address.Address) []address.Address { return addrs }

func TestPrimaryModeSelectsOnlyPrimary(t *testing.T) {
	primary := description.Server{Address: "a:1", Type: description.RSPrimary, SetName: "rs0", Members: rsMembers("a:1", "b:1")}
	secondary := description.Server{Address: "b:1", Type: description.RSSecondary, SetName: "rs0", Members: rsMembers("a:1", "b:1")}
	topo := buildTopology(primary, secondary)

	sel := Selector(Primary())
	got, err := sel(topo, topo.Servers())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Address != "a:1" {
		t.Fatalf("got %v, want just the primary", got)
	}
}

func TestSecondaryPreferredFallsBackToPrimary(t *testing.T) {
	primary := description.Server{Address: "a:1", Type: description.RSPrimary, SetName: "rs0", Members: rsMembers("a:1")}
	topo := buildTopology(primary)

	sel := Selector(SecondaryPreferred())
	got, err := sel(topo, topo.Servers())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Address != "a:1" {
		t.Fatalf("got %v, want the primary as fallback", got)
	}
}

func TestTagSetFiltersSecondaries(t *testing.T) {
	primary := description.Server{Address: "a:1", Type: description.RSPrimary, SetName: "rs0", Members: rsMembers("a:1", "b:1", "c:1")}
	east := description.Server{Address: "b:1", Type: description.RSSecondary, SetName: "rs0", Tags: tag.NewSet("region", "east"), Members: rsMembers("a:1", "b:1", "c:1")}
	west := description.Server{Address: "c:1", Type: description.RSSecondary, SetName: "rs0", Tags: tag.NewSet("region", "west"), Members: rsMembers("a:1", "b:1", "c:1")}
	topo := buildTopology(primary, east, west)

	sel := Selector(Secondary(WithTags("region", "west")))
	got, err := sel(topo, topo.Servers())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Address != "c:1" {
		t.Fatalf("got %v, want just c:1", got)
	}
}

func TestMaxStalenessBelowFloorIsRejected(t *testing.T) {
	sel := Selector(Secondary(WithMaxStaleness(time.Second)))
	_, err := sel(description.New(nil, "rs0"), nil)
	if err == nil {
		t.Fatalf("expected an error for a max staleness below the 90s floor")
	}
}

func TestModeFromString(t *testing.T) {
	m, err := ModeFromString("SecondaryPreferred")
	if err != nil || m != SecondaryPreferredMode {
		t.Fatalf("got (%v, %v), want (SecondaryPreferredMode, nil)", m, err)
	}
	if _, err := ModeFromString("bogus"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}
