package topology

import "github.com/ikmak/topologycore/address"

// Cursor identifies a server-side cursor left open by a find or aggregate
// reply. Iterating it — sending getMore and killCursors — depends on the
// wire protocol and is out of scope here; this type exists only so
// dispatch code has somewhere to park the id and originating server
// until a higher layer takes over.
type Cursor struct {
	ID     int64
	Server address.Address
}

// NewCursor constructs a Cursor from a reply's cursor id and the server
// it came from.
func NewCursor(id int64, server address.Address) Cursor {
	return Cursor{ID: id, Server: server}
}
