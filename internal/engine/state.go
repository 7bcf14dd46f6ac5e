package engine

// State is the lifecycle stage of one side (local or remote) of an
// endpoint (connection, session, or link). States only ever advance
// forward: Uninitialized -> Active -> Closed.
type State uint8

const (
	Uninitialized State = iota
	Active
	Closed
)

// StateSet is a bitmask over {Uninitialized, Active, Closed}, used to
// filter endpoint iteration by (local, remote) state pairs, e.g. "local
// Active, remote anything" for the credit controller's receiver walk.
type StateSet uint8

const (
	SetUninitialized StateSet = 1 << Uninitialized
	SetActive        StateSet = 1 << Active
	SetClosed        StateSet = 1 << Closed
	SetAny           StateSet = SetUninitialized | SetActive | SetClosed
)

func (s State) in(set StateSet) bool {
	return set&(1<<s) != 0
}

// endpoint is the embeddable local/remote state pair shared by
// connections, sessions, and links.
type endpoint struct {
	local  State
	remote State
}

func (e *endpoint) LocalState() State  { return e.local }
func (e *endpoint) RemoteState() State { return e.remote }

func (e *endpoint) matches(localSet, remoteSet StateSet) bool {
	return e.local.in(localSet) && e.remote.in(remoteSet)
}
