// Package http implements an HTTP service for decoding bencoded documents and
// storing BitTorrent metainfo files.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/chihaya/bdecode/bencode"
	"github.com/chihaya/bdecode/metainfo"
	"github.com/chihaya/bdecode/pkg/log"
	"github.com/chihaya/bdecode/pkg/render"
	"github.com/chihaya/bdecode/pkg/stop"
	"github.com/chihaya/bdecode/storage"
)

// Default config constants.
const (
	defaultReadTimeout  = 2 * time.Second
	defaultWriteTimeout = 2 * time.Second
	defaultMaxBodySize  = 4 << 20
)

// Config represents all of the configurable options for the HTTP frontend.
type Config struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodySize  int64         `yaml:"max_body_size"`
}

// LogFields renders the current config as a set of Logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"addr":         cfg.Addr,
		"readTimeout":  cfg.ReadTimeout,
		"writeTimeout": cfg.WriteTimeout,
		"maxBodySize":  cfg.MaxBodySize,
	}
}

// Validate sanity checks values set in a config and returns a new config with
// default values replacing anything that is invalid.
//
// This function warns to the logger when a value is changed.
func (cfg Config) Validate() Config {
	validcfg := cfg

	if cfg.ReadTimeout <= 0 {
		validcfg.ReadTimeout = defaultReadTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.ReadTimeout",
			"provided": cfg.ReadTimeout,
			"default":  validcfg.ReadTimeout,
		})
	}

	if cfg.WriteTimeout <= 0 {
		validcfg.WriteTimeout = defaultWriteTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.WriteTimeout",
			"provided": cfg.WriteTimeout,
			"default":  validcfg.WriteTimeout,
		})
	}

	if cfg.MaxBodySize <= 0 {
		validcfg.MaxBodySize = defaultMaxBodySize
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.MaxBodySize",
			"provided": cfg.MaxBodySize,
			"default":  validcfg.MaxBodySize,
		})
	}

	return validcfg
}

// Frontend represents the state of the HTTP frontend.
type Frontend struct {
	srv      *http.Server
	listener net.Listener

	store storage.Store
	Config
}

// NewFrontend binds the configured address and returns a Frontend that
// asynchronously serves requests.
func NewFrontend(store storage.Store, provided Config) (*Frontend, error) {
	cfg := provided.Validate()
	f := &Frontend{
		store:  store,
		Config: cfg,
	}

	ln, err := net.Listen("tcp", f.Addr)
	if err != nil {
		return nil, err
	}
	f.listener = ln

	f.srv = &http.Server{
		Handler:      f.handler(),
		ReadTimeout:  f.ReadTimeout,
		WriteTimeout: f.WriteTimeout,
	}

	go func() {
		if err := f.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed while serving http", log.Err(err))
		}
	}()

	return f, nil
}

// ListenAddr returns the address the Frontend is serving on.
func (f *Frontend) ListenAddr() net.Addr {
	return f.listener.Addr()
}

// Stop provides a thread-safe way to shutdown a currently running Frontend.
func (f *Frontend) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		c.Done(f.srv.Shutdown(context.Background()))
	}()

	return c.Result()
}

func (f *Frontend) handler() http.Handler {
	router := httprouter.New()
	router.POST("/decode", f.decodeRoute)
	router.POST("/torrents", f.putTorrentRoute)
	router.GET("/torrents/:infohash", f.getTorrentRoute)
	router.DELETE("/torrents/:infohash", f.deleteTorrentRoute)
	return router
}

// decodeRoute decodes the request body and responds with every top-level
// value it holds.
func (f *Frontend) decodeRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("decode", err, time.Since(start)) }()

	body, err := readBody(w, r, f.MaxBodySize)
	if err != nil {
		WriteError(w, err)
		return
	}

	values, err := bencode.Decode(body)
	if err != nil {
		WriteError(w, err)
		return
	}

	trees, err := render.Trees(values)
	if err != nil {
		WriteError(w, err)
		return
	}

	err = WriteValues(w, trees)
	if err != nil {
		log.Error("http: failed to write decode response", log.Err(err))
	}
}

// putTorrentRoute parses the request body as a metainfo file and stores it.
func (f *Frontend) putTorrentRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("put", err, time.Since(start)) }()

	body, err := readBody(w, r, f.MaxBodySize)
	if err != nil {
		WriteError(w, err)
		return
	}

	mi, err := metainfo.Parse(body)
	if err != nil {
		WriteError(w, err)
		return
	}

	err = f.store.Put(mi.InfoHash, body)
	if err != nil {
		WriteError(w, err)
		return
	}

	log.Info("http: stored torrent", mi)
	err = WriteSummary(w, http.StatusCreated, mi)
	if err != nil {
		log.Error("http: failed to write torrent summary", log.Err(err))
	}
}

// getTorrentRoute responds with the summary of a stored metainfo file.
func (f *Frontend) getTorrentRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("get", err, time.Since(start)) }()

	infoHash, err := parseInfoHash(ps)
	if err != nil {
		WriteError(w, err)
		return
	}

	raw, err := f.store.Get(infoHash)
	if err != nil {
		WriteError(w, err)
		return
	}

	mi, err := metainfo.Parse(raw)
	if err != nil {
		WriteError(w, err)
		return
	}

	err = WriteSummary(w, http.StatusOK, mi)
	if err != nil {
		log.Error("http: failed to write torrent summary", log.Err(err))
	}
}

// deleteTorrentRoute removes a stored metainfo file.
func (f *Frontend) deleteTorrentRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("delete", err, time.Since(start)) }()

	infoHash, err := parseInfoHash(ps)
	if err != nil {
		WriteError(w, err)
		return
	}

	err = f.store.Delete(infoHash)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
