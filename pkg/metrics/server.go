// Package metrics implements a standalone HTTP server for serving pprof
// profiles and Prometheus metrics, along with helpers shared by the packages
// that record them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chihaya/bdecode/bencode"
	"github.com/chihaya/bdecode/pkg/log"
	"github.com/chihaya/bdecode/pkg/stop"
)

// Server represents a standalone HTTP server for serving a Prometheus metrics
// endpoint.
type Server struct {
	srv *http.Server
}

// Stop shuts down the server.
func (s *Server) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		c.Done(s.srv.Shutdown(context.Background()))
	}()

	return c.Result()
}

// Handler returns the routes served by a metrics Server.
func Handler() http.Handler {
	router := httprouter.New()
	router.Handler("GET", "/metrics", promhttp.Handler())
	router.GET("/debug/pprof/*profile", serveProfile)
	return router
}

func serveProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("profile") {
	case "/cmdline":
		pprof.Cmdline(w, r)
	case "/profile":
		pprof.Profile(w, r)
	case "/symbol":
		pprof.Symbol(w, r)
	case "/trace":
		pprof.Trace(w, r)
	default:
		pprof.Index(w, r)
	}
}

// NewServer creates a new instance of a Prometheus server that asynchronously
// serves requests.
func NewServer(addr string) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Handler(),
			ReadHeaderTimeout: time.Second * 60,
		},
	}

	go func() {
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed while serving prometheus", log.Err(err))
		}
	}()

	return s
}

// ObserveMilliseconds records the time elapsed since start on o.
func ObserveMilliseconds(o prometheus.Observer, start time.Time) {
	o.Observe(float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond))
}

// ErrorKind returns the label value used to partition metrics by the outcome
// of a decode.
//
// It is "none" for a nil error and "other" for errors that did not come from
// the decoder.
func ErrorKind(err error) string {
	if err == nil {
		return "none"
	}

	var de *bencode.Error
	if errors.As(err, &de) {
		return de.Kind.String()
	}

	if errors.Is(err, bencode.ErrNotSingleValue) {
		return "not single value"
	}

	return "other"
}
