package locker

import "fmt"

// Policy decides which party aborts when a writer's wait times out.
type Policy int

const (
	// AbortSelf aborts the waiting transaction. Holders are never disturbed.
	AbortSelf Policy = iota

	// WoundReaders lets a timed out writer take the page from its shared holders. The holders lose their
	// lock and are marked for abort. A writer blocked by another writer still aborts itself.
	WoundReaders
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "abort-self", "":
		return AbortSelf, nil
	case "wound-readers":
		return WoundReaders, nil
	default:
		return AbortSelf, fmt.Errorf("unknown deadlock policy %q", s)
	}
}

func (p Policy) String() string {
	if p == WoundReaders {
		return "wound-readers"
	}
	return "abort-self"
}
