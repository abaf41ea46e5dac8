package topology

import (
	"sort"

	"github.com/ikmak/topologycore/address"
)

// serverDiff is the set of addresses added to, or removed from, a
// topology's membership between two descriptions.
type serverDiff struct {
	Added   []address.Address
	Removed []address.Address
}

// diffServers compares the member addresses of old and new, given in any
// order (sorted copies are compared), and returns which addresses appeared
// and which disappeared.
func diffServers(old, new []address.Address) serverDiff {
	oldSorted := append([]address.Address(nil), old...)
	newSorted := append([]address.Address(nil), new...)
	sort.Slice(oldSorted, func(i, j int) bool { return oldSorted[i] < oldSorted[j] })
	sort.Slice(newSorted, func(i, j int) bool { return newSorted[i] < newSorted[j] })

	var diff serverDiff
	i, j := 0, 0
	for i < len(oldSorted) && j < len(newSorted) {
		switch {
		case oldSorted[i] < newSorted[j]:
			diff.Removed = append(diff.Removed, oldSorted[i])
			i++
		case oldSorted[i] > newSorted[j]:
			diff.Added = append(diff.Added, newSorted[j])
			j++
		default:
			i++
			j++
		}
	}
	diff.Removed = append(diff.Removed, oldSorted[i:]...)
	diff.Added = append(diff.Added, newSorted[j:]...)
	return diff
}
