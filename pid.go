package ripple

import "fmt"

// PID is a stable reference to an ActorCell. It stays valid for the cell's
// entire lifetime and is safe to hold onto after the cell has stopped;
// sends to a stopped PID are not delivered, and once the cell has been
// unlinked from its parent ActorSystem.Send reports ErrActorNotFound.
type PID struct {
	id   uint64
	name string
}

// String returns a human-readable identifier combining the cell's name and
// its process id, e.g. "Pinger#3".
func (p *PID) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", p.name, p.id)
}

// Name returns the name the cell was created with.
func (p *PID) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}
