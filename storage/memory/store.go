// Package memory implements the storage interface for a BitTorrent metainfo
// store, keeping every document in memory.
package memory

import (
	"encoding/binary"
	"sync"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/chihaya/bdecode/bittorrent"
	"github.com/chihaya/bdecode/pkg/log"
	"github.com/chihaya/bdecode/pkg/metrics"
	"github.com/chihaya/bdecode/pkg/stop"
	"github.com/chihaya/bdecode/storage"
)

// Name is the name by which this store is registered.
const Name = "memory"

// Default config constants.
const (
	defaultShardCount = 1024
)

func init() {
	storage.RegisterDriver(Name, driver{})
}

type driver struct{}

func (d driver) NewStore(icfg interface{}) (storage.Store, error) {
	// Marshal the config back into bytes.
	bytes, err := yaml.Marshal(icfg)
	if err != nil {
		return nil, err
	}

	// Unmarshal the bytes into the proper config type.
	var cfg Config
	err = yaml.Unmarshal(bytes, &cfg)
	if err != nil {
		return nil, err
	}

	return New(cfg)
}

// Config holds the configuration of a memory Store.
type Config struct {
	ShardCount int `yaml:"shard_count"`
}

// LogFields renders the current config as a set of Logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"name":       Name,
		"shardCount": cfg.ShardCount,
	}
}

// Validate sanity checks values set in a config and returns a new config with
// default values replacing anything that is invalid.
//
// This function warns to the logger when a value is changed.
func (cfg Config) Validate() Config {
	validcfg := cfg

	if cfg.ShardCount <= 0 {
		validcfg.ShardCount = defaultShardCount
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".ShardCount",
			"provided": cfg.ShardCount,
			"default":  validcfg.ShardCount,
		})
	}

	return validcfg
}

// New creates a new Store backed by memory.
func New(provided Config) (storage.Store, error) {
	cfg := provided.Validate()

	s := &store{
		cfg:    cfg,
		shards: make([]*shard, cfg.ShardCount),
		closed: make(chan struct{}),
	}

	for i := range s.shards {
		s.shards[i] = &shard{documents: make(map[bittorrent.InfoHash][]byte)}
	}

	return s, nil
}

type shard struct {
	documents map[bittorrent.InfoHash][]byte
	sync.RWMutex
}

type store struct {
	cfg    Config
	shards []*shard

	closed chan struct{}
}

var _ storage.Store = &store{}

func (s *store) shardIndex(infoHash bittorrent.InfoHash) uint32 {
	return binary.BigEndian.Uint32(infoHash[:4]) % uint32(len(s.shards))
}

func (s *store) panicIfClosed() {
	select {
	case <-s.closed:
		panic("attempted to interact with stopped memory store")
	default:
	}
}

func observe(operation string, start time.Time) {
	metrics.ObserveMilliseconds(storage.PromOperationDurationMilliseconds.WithLabelValues(Name, operation), start)
}

func (s *store) Put(infoHash bittorrent.InfoHash, raw []byte) error {
	s.panicIfClosed()
	defer observe("put", time.Now())

	doc := make([]byte, len(raw))
	copy(doc, raw)

	sh := s.shards[s.shardIndex(infoHash)]
	sh.Lock()
	if _, ok := sh.documents[infoHash]; !ok {
		storage.PromDocumentsCount.WithLabelValues(Name).Inc()
	}
	sh.documents[infoHash] = doc
	sh.Unlock()

	return nil
}

func (s *store) Get(infoHash bittorrent.InfoHash) ([]byte, error) {
	s.panicIfClosed()
	defer observe("get", time.Now())

	sh := s.shards[s.shardIndex(infoHash)]
	sh.RLock()
	doc, ok := sh.documents[infoHash]
	sh.RUnlock()

	if !ok {
		return nil, storage.ErrResourceDoesNotExist
	}

	// Stored documents are never mutated after Put.
	return doc[:len(doc):len(doc)], nil
}

func (s *store) Delete(infoHash bittorrent.InfoHash) error {
	s.panicIfClosed()
	defer observe("delete", time.Now())

	sh := s.shards[s.shardIndex(infoHash)]
	sh.Lock()
	defer sh.Unlock()

	if _, ok := sh.documents[infoHash]; !ok {
		return storage.ErrResourceDoesNotExist
	}

	delete(sh.documents, infoHash)
	storage.PromDocumentsCount.WithLabelValues(Name).Dec()

	return nil
}

func (s *store) Len() (int, error) {
	s.panicIfClosed()

	n := 0
	for _, sh := range s.shards {
		sh.RLock()
		n += len(sh.documents)
		sh.RUnlock()
	}

	return n, nil
}

func (s *store) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		close(s.closed)

		var dropped int
		for _, sh := range s.shards {
			sh.Lock()
			dropped += len(sh.documents)
			sh.documents = make(map[bittorrent.InfoHash][]byte)
			sh.Unlock()
		}
		storage.PromDocumentsCount.WithLabelValues(Name).Sub(float64(dropped))

		c.Done()
	}()

	return c.Result()
}

// LogFields renders the store's configuration as a set of Logrus fields.
func (s *store) LogFields() log.Fields {
	return s.cfg.LogFields()
}
