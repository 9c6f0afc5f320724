package redis

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	redigo "github.com/gomodule/redigo/redis"
)

// redisBackend represents a redis handler.
type redisBackend struct {
	pool *redigo.Pool
}

// newRedisBackend creates a redisBackend instance.
func newRedisBackend(cfg *Config, u *redisURL) *redisBackend {
	rc := &redisConnector{
		URL:            u,
		SocketPath:     u.SocketPath,
		ReadTimeout:    cfg.RedisReadTimeout,
		WriteTimeout:   cfg.RedisWriteTimeout,
		ConnectTimeout: cfg.RedisConnectTimeout,
	}
	return &redisBackend{pool: rc.NewPool()}
}

// open returns or creates instance of Redis connection.
func (rb *redisBackend) open() redigo.Conn {
	return rb.pool.Get()
}

type redisConnector struct {
	URL            *redisURL
	SocketPath     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ConnectTimeout time.Duration
}

// NewPool returns a new pool of Redis connections
func (rc *redisConnector) NewPool() *redigo.Pool {
	return &redigo.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial:        rc.open,
		// PINGs connections that have been idle more than 10 seconds
		TestOnBorrow: func(c redigo.Conn, t time.Time) error {
			if time.Since(t) < 10*time.Second {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// Open a new Redis connection
func (rc *redisConnector) open() (redigo.Conn, error) {
	opts := []redigo.DialOption{
		redigo.DialDatabase(rc.URL.DB),
		redigo.DialReadTimeout(rc.ReadTimeout),
		redigo.DialWriteTimeout(rc.WriteTimeout),
		redigo.DialConnectTimeout(rc.ConnectTimeout),
	}

	if rc.URL.Password != "" {
		opts = append(opts, redigo.DialPassword(rc.URL.Password))
	}

	if rc.SocketPath != "" {
		return redigo.Dial("unix", rc.SocketPath, opts...)
	}

	return redigo.Dial("tcp", rc.URL.Host, opts...)
}

// A redisURL represents a parsed redisURL
// The general form represented is:
//
//	redis://[password@]host][/][db]
//	redis-socket://[password@]path[?db=db]
type redisURL struct {
	Host       string
	SocketPath string
	Password   string
	DB         int
}

// parseRedisURL parse rawurl into redisURL
func parseRedisURL(target string) (*redisURL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	db := 0 // default redis db
	switch u.Scheme {
	case "redis":
		parts := strings.Split(u.Path, "/")
		if len(parts) != 1 && parts[1] != "" {
			db, err = strconv.Atoi(parts[1])
			if err != nil {
				return nil, err
			}
		}
		u.Path = ""
	case "redis-socket":
		opts, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return nil, err
		}
		if dbval := opts.Get("db"); dbval != "" {
			db, err = strconv.Atoi(dbval)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("no redis scheme found")
	}

	return &redisURL{
		Host:       u.Host,
		SocketPath: u.Path,
		Password:   u.User.String(),
		DB:         db,
	}, nil
}
