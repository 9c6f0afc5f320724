// Package redis implements the storage interface for a BitTorrent metainfo
// store backed by Redis.
//
// Every document is kept as a string value under
// "bdecode:torrent:<hex infohash>". The set "bdecode:torrents" indexes the
// stored infohashes so that the number of documents can be counted without
// scanning the keyspace.
package redis

import (
	"time"

	redigo "github.com/gomodule/redigo/redis"
	yaml "gopkg.in/yaml.v2"

	"github.com/chihaya/bdecode/bittorrent"
	"github.com/chihaya/bdecode/pkg/log"
	"github.com/chihaya/bdecode/pkg/metrics"
	"github.com/chihaya/bdecode/pkg/stop"
	"github.com/chihaya/bdecode/storage"
)

// Name is the name by which this store is registered.
const Name = "redis"

// Default config constants.
const (
	defaultRedisBroker         = "redis://myRedis@127.0.0.1:6379/0"
	defaultRedisReadTimeout    = time.Second * 15
	defaultRedisWriteTimeout   = time.Second * 15
	defaultRedisConnectTimeout = time.Second * 15
)

const (
	documentKeyPrefix = "bdecode:torrent:"
	indexKey          = "bdecode:torrents"
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

// Config holds the configuration of a redis Store.
type Config struct {
	RedisBroker         string        `yaml:"redis_broker"`
	RedisReadTimeout    time.Duration `yaml:"redis_read_timeout"`
	RedisWriteTimeout   time.Duration `yaml:"redis_write_timeout"`
	RedisConnectTimeout time.Duration `yaml:"redis_connect_timeout"`
}

// LogFields renders the current config as a set of Logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"name":                Name,
		"redisBroker":         cfg.RedisBroker,
		"redisReadTimeout":    cfg.RedisReadTimeout,
		"redisWriteTimeout":   cfg.RedisWriteTimeout,
		"redisConnectTimeout": cfg.RedisConnectTimeout,
	}
}

// Validate sanity checks values set in a config and returns a new config with
// default values replacing anything that is invalid.
//
// This function warns to the logger when a value is changed.
func (cfg Config) Validate() Config {
	validcfg := cfg

	if cfg.RedisBroker == "" {
		validcfg.RedisBroker = defaultRedisBroker
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisBroker",
			"provided": cfg.RedisBroker,
			"default":  validcfg.RedisBroker,
		})
	}

	if cfg.RedisReadTimeout <= 0 {
		validcfg.RedisReadTimeout = defaultRedisReadTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisReadTimeout",
			"provided": cfg.RedisReadTimeout,
			"default":  validcfg.RedisReadTimeout,
		})
	}

	if cfg.RedisWriteTimeout <= 0 {
		validcfg.RedisWriteTimeout = defaultRedisWriteTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisWriteTimeout",
			"provided": cfg.RedisWriteTimeout,
			"default":  validcfg.RedisWriteTimeout,
		})
	}

	if cfg.RedisConnectTimeout <= 0 {
		validcfg.RedisConnectTimeout = defaultRedisConnectTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisConnectTimeout",
			"provided": cfg.RedisConnectTimeout,
			"default":  validcfg.RedisConnectTimeout,
		})
	}

	return validcfg
}

// New creates a new Store backed by redis.
func New(provided Config) (storage.Store, error) {
	cfg := provided.Validate()

	u, err := parseRedisURL(cfg.RedisBroker)
	if err != nil {
		return nil, err
	}

	s := &store{
		cfg:    cfg,
		rb:     newRedisBackend(&cfg, u),
		closed: make(chan struct{}),
	}

	conn := s.rb.open()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		s.rb.pool.Close()
		return nil, err
	}

	return s, nil
}

type store struct {
	cfg Config
	rb  *redisBackend

	closed chan struct{}
}

var _ storage.Store = &store{}

func documentKey(infoHash bittorrent.InfoHash) string {
	return documentKeyPrefix + infoHash.String()
}

func (s *store) panicIfClosed() {
	select {
	case <-s.closed:
		panic("attempted to interact with stopped redis store")
	default:
	}
}

func observe(operation string, start time.Time) {
	metrics.ObserveMilliseconds(storage.PromOperationDurationMilliseconds.WithLabelValues(Name, operation), start)
}

func (s *store) Put(infoHash bittorrent.InfoHash, raw []byte) error {
	s.panicIfClosed()
	defer observe("put", time.Now())

	conn := s.rb.open()
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return err
	}
	if err := conn.Send("SET", documentKey(infoHash), raw); err != nil {
		return err
	}
	if err := conn.Send("SADD", indexKey, infoHash.String()); err != nil {
		return err
	}
	reply, err := redigo.Values(conn.Do("EXEC"))
	if err != nil {
		return err
	}

	added, err := redigo.Int(reply[1], nil)
	if err != nil {
		return err
	}
	storage.PromDocumentsCount.WithLabelValues(Name).Add(float64(added))

	return nil
}

func (s *store) Get(infoHash bittorrent.InfoHash) ([]byte, error) {
	s.panicIfClosed()
	defer observe("get", time.Now())

	conn := s.rb.open()
	defer conn.Close()

	raw, err := redigo.Bytes(conn.Do("GET", documentKey(infoHash)))
	if err == redigo.ErrNil {
		return nil, storage.ErrResourceDoesNotExist
	} else if err != nil {
		return nil, err
	}

	return raw, nil
}

func (s *store) Delete(infoHash bittorrent.InfoHash) error {
	s.panicIfClosed()
	defer observe("delete", time.Now())

	conn := s.rb.open()
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return err
	}
	if err := conn.Send("DEL", documentKey(infoHash)); err != nil {
		return err
	}
	if err := conn.Send("SREM", indexKey, infoHash.String()); err != nil {
		return err
	}
	reply, err := redigo.Values(conn.Do("EXEC"))
	if err != nil {
		return err
	}

	deleted, err := redigo.Int(reply[0], nil)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return storage.ErrResourceDoesNotExist
	}
	storage.PromDocumentsCount.WithLabelValues(Name).Dec()

	return nil
}

func (s *store) Len() (int, error) {
	s.panicIfClosed()

	conn := s.rb.open()
	defer conn.Close()

	return redigo.Int(conn.Do("SCARD", indexKey))
}

func (s *store) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		close(s.closed)
		if err := s.rb.pool.Close(); err != nil {
			log.Error("redis: failed to close connection pool", log.Err(err))
			c.Done(err)
			return
		}
		c.Done()
	}()

	return c.Result()
}

// LogFields renders the store's configuration as a set of Logrus fields.
func (s *store) LogFields() log.Fields {
	return s.cfg.LogFields()
}
