package main

import (
	"context"
	"math/rand"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
)

// demoHeartbeat stands in for a real isMaster/hello round trip, which
// needs a wire protocol this repository doesn't implement. It reports
// localhost:27017 as a replica set primary and every other address as a
// secondary, and fails about one call in twenty, so topomon has something
// to print without a live server.
func demoHeartbeat(_ context.Context, addr address.Address) (*description.IsMasterResponse, error) {
	resp := &description.IsMasterResponse{
		OK:      true,
		SetName: "topomon-demo",
		Hosts:   []string{string(addr)},
	}
	if rand.Intn(20) == 0 {
		return nil, errDemoUnreachable
	}
	if addr == "localhost:27017" {
		resp.IsMaster = true
		resp.SetVersion = 1
		resp.ElectionID = description.ElectionID{11: 1}
	} else {
		resp.Secondary = true
		resp.SetVersion = 1
	}
	return resp, nil
}

type demoUnreachableError struct{}

func (demoUnreachableError) Error() string { return "topomon: demo server unreachable" }

var errDemoUnreachable = demoUnreachableError{}
