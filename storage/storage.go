// Package storage defines the interface for stores of raw metainfo documents
// keyed by infohash, and a registry of the drivers that implement it.
//
// Stores keep the bencoded bytes exactly as they were received; decoding is
// left to the reader so the stored form is always the authoritative one.
package storage

import (
	"errors"
	"sync"

	"github.com/chihaya/bdecode/bittorrent"
	"github.com/chihaya/bdecode/pkg/stop"
)

var (
	driversM sync.RWMutex
	drivers  = make(map[string]Driver)
)

// Driver is the interface used to initialize a new type of Store.
type Driver interface {
	NewStore(cfg interface{}) (Store, error)
}

// ErrResourceDoesNotExist is the error returned by Get and Delete if the
// requested document does not exist.
var ErrResourceDoesNotExist = bittorrent.ClientError("resource does not exist")

// ErrDriverDoesNotExist is the error returned by NewStore when a store
// driver with that name does not exist.
var ErrDriverDoesNotExist = errors.New("store driver with that name does not exist")

// Store is an interface that abstracts storing raw metainfo documents such
// that it can be implemented for various data stores.
type Store interface {
	// Put stores raw under infoHash, replacing any previous document.
	//
	// Implementations must not retain raw after returning.
	Put(infoHash bittorrent.InfoHash, raw []byte) error

	// Get returns the document stored under infoHash.
	//
	// If the document does not exist, this function should return
	// ErrResourceDoesNotExist.
	Get(infoHash bittorrent.InfoHash) ([]byte, error)

	// Delete removes the document stored under infoHash.
	//
	// If the document does not exist, this function should return
	// ErrResourceDoesNotExist.
	Delete(infoHash bittorrent.InfoHash) error

	// Len returns the number of stored documents.
	Len() (int, error)

	// stop is an interface that expects a Stop method to stop the Store.
	// For more details see the documentation in the stop package.
	stop.Stopper
}

// RegisterDriver makes a Driver available by the provided name.
//
// If called twice with the same name, the name is blank, or if the provided
// Driver is nil, this function panics.
func RegisterDriver(name string, d Driver) {
	if name == "" {
		panic("storage: could not register a Driver with an empty name")
	}
	if d == nil {
		panic("storage: could not register a nil Driver")
	}

	driversM.Lock()
	defer driversM.Unlock()

	if _, dup := drivers[name]; dup {
		panic("storage: RegisterDriver called twice for " + name)
	}

	drivers[name] = d
}

// NewStore attempts to initialize a new Store given a name from the list of
// registered Drivers.
//
// If a driver does not exist, returns ErrDriverDoesNotExist.
func NewStore(name string, cfg interface{}) (Store, error) {
	driversM.RLock()
	defer driversM.RUnlock()

	d, ok := drivers[name]
	if !ok {
		return nil, ErrDriverDoesNotExist
	}

	return d.NewStore(cfg)
}
