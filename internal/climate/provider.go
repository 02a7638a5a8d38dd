package climate

import (
	"time"

	"github.com/i474232898/acis-toolkit/internal/acis"
)

// Client abstracts the ACIS web services (see webservices.Client).
type Client interface {
	acis.Caller
	acis.StreamCaller
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveSnapshot(key string, snapshot Snapshot)
	GetLatest(key string) (Snapshot, error)
	GetRange(key string, from, to time.Time) ([]Snapshot, error)
}
