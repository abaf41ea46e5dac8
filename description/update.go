package description

import "github.com/ikmak/topologycore/address"

// Update advances t by folding in a newly observed Server description,
// returning a new Topology. t itself is left untouched: every path here
// operates on a clone, so repeated calls with the same sd are idempotent
// and concurrent readers of the old Topology never observe a partial
// update.
func (t Topology) Update(sd Server) Topology {
	var nt Topology
	switch t.Type {
	case TopologyUnknown:
		nt = t.applyToUnknown(sd)
	case Single:
		nt = t.applyToSingle(sd)
	case RSNoPrimary:
		nt = t.applyToReplicaSetNoPrimary(sd)
	case RSWithPrimary:
		nt = t.applyToReplicaSetWithPrimary(sd)
	case Sharded:
		nt = t.applyToSharded(sd)
	default:
		return t
	}
	nt.recomputeLogicalSessionTimeout()
	return nt
}

func (t Topology) applyToUnknown(sd Server) Topology {
	nt := t.clone()
	switch sd.Type {
	case Unknown, RSGhost:
		nt.setServer(sd)
		return nt
	case Standalone:
		if len(nt.servers) == 1 {
			nt.setServer(sd)
			nt.Type = Single
			return nt
		}
		nt.removeServer(sd.Address)
		return nt
	case Mongos:
		nt.setServer(sd)
		nt.Type = Sharded
		return nt
	case RSPrimary:
		nt.setServer(sd)
		nt.Type = RSWithPrimary
		return nt.updateRSFromPrimary(sd)
	case RSSecondary, RSArbiter, RSOther:
		nt.setServer(sd)
		nt.Type = RSNoPrimary
		return nt.updateRSWithoutPrimary(sd)
	}
	return nt
}

func (t Topology) applyToSingle(sd Server) Topology {
	nt := t.clone()
	nt.setServer(sd)
	return nt
}

func (t Topology) applyToSharded(sd Server) Topology {
	nt := t.clone()
	if sd.Type != Unknown && sd.Type != Mongos {
		nt.removeServer(sd.Address)
		return nt
	}
	nt.setServer(sd)
	return nt
}

func (t Topology) applyToReplicaSetNoPrimary(sd Server) Topology {
	if t.findIndex(sd.Address) < 0 {
		return t
	}
	nt := t.clone()
	switch sd.Type {
	case Unknown, RSGhost:
		nt.setServer(sd)
		return nt
	case Standalone, Mongos:
		nt.removeServer(sd.Address)
		return nt
	case RSPrimary:
		nt.setServer(sd)
		nt.Type = RSWithPrimary
		return nt.updateRSFromPrimary(sd)
	case RSSecondary, RSArbiter, RSOther:
		nt.setServer(sd)
		return nt.updateRSWithoutPrimary(sd)
	}
	return nt
}

func (t Topology) applyToReplicaSetWithPrimary(sd Server) Topology {
	if t.findIndex(sd.Address) < 0 {
		return t
	}
	nt := t.clone()
	switch sd.Type {
	case Unknown, RSGhost:
		nt.setServer(sd)
		return nt.checkIfHasPrimary()
	case Standalone, Mongos:
		nt.removeServer(sd.Address)
		return nt.checkIfHasPrimary()
	case RSPrimary:
		nt.setServer(sd)
		return nt.updateRSFromPrimary(sd)
	case RSSecondary, RSArbiter, RSOther:
		nt.setServer(sd)
		return nt.updateRSWithPrimaryFromMember(sd)
	}
	return nt
}

func (t Topology) checkIfHasPrimary() Topology {
	if _, ok := t.findPrimary(); ok {
		t.Type = RSWithPrimary
	} else {
		t.Type = RSNoPrimary
	}
	return t
}

// updateRSFromPrimary folds in a primary's report of the set: it resolves
// setVersion/electionID conflicts between competing primaries (the higher
// (setVersion, electionID) pair wins, setVersion compared first — a pair
// lower than the highest seen so far is demoted to Unknown, while an equal
// pair, as when the same primary reports again, is accepted) and rebuilds
// membership strictly from the primary's host/passive/arbiter lists.
func (t Topology) updateRSFromPrimary(sd Server) Topology {
	nt := t
	if nt.SetName == "" {
		nt.SetName = sd.SetName
	} else if nt.SetName != sd.SetName {
		nt.removeServer(sd.Address)
		return nt.checkIfHasPrimary()
	}

	if !sd.ElectionID.IsZero() {
		if sd.SetVersion != 0 && nt.MaxSetVersion != 0 && sd.SetVersion < nt.MaxSetVersion {
			nt.demote(sd.Address)
			return nt.checkIfHasPrimary()
		}
		if sd.SetVersion <= nt.MaxSetVersion && !nt.MaxElectionID.IsZero() && nt.MaxElectionID.Compare(sd.ElectionID) > 0 {
			nt.demote(sd.Address)
			return nt.checkIfHasPrimary()
		}
		nt.MaxElectionID = sd.ElectionID
	}
	if sd.SetVersion > nt.MaxSetVersion {
		nt.MaxSetVersion = sd.SetVersion
	}

	for i, s := range nt.servers {
		if s.Address != sd.Address && s.Type == RSPrimary {
			s.Type = Unknown
			s.SetName = ""
			nt.servers[i] = s
		}
	}

	nt.addServersFromMembers(sd.Members)
	nt.removeServersNotIn(sd.Members, sd.Address)

	return nt.checkIfHasPrimary()
}

func (t Topology) updateRSWithoutPrimary(sd Server) Topology {
	nt := t
	if nt.SetName == "" {
		nt.SetName = sd.SetName
	} else if nt.SetName != sd.SetName {
		nt.removeServer(sd.Address)
		return nt
	}
	nt.addServersFromMembers(sd.Members)
	nt.Type = RSNoPrimary
	return nt
}

func (t Topology) updateRSWithPrimaryFromMember(sd Server) Topology {
	nt := t
	if nt.SetName != sd.SetName {
		nt.removeServer(sd.Address)
		return nt.checkIfHasPrimary()
	}
	nt.addServersFromMembers(sd.Members)
	return nt.checkIfHasPrimary()
}

// demote overwrites the server at addr with an Unknown placeholder,
// discarding a stale primary's claim without losing its slot in the
// membership list.
func (t *Topology) demote(addr address.Address) {
	i := t.findIndex(addr)
	if i < 0 {
		return
	}
	t.servers[i] = Server{Address: addr, Type: Unknown}
}
