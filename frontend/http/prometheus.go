package http

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chihaya/bdecode/bencode"
	"github.com/chihaya/bdecode/bittorrent"
	"github.com/chihaya/bdecode/pkg/metrics"
)

func init() {
	prometheus.MustRegister(promResponseDurationMilliseconds)
	prometheus.MustRegister(promDecodeFailuresTotal)
}

var promResponseDurationMilliseconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "bdecode_http_response_duration_milliseconds",
		Help:    "The duration of time it takes to receive and write a response to an API request",
		Buckets: prometheus.ExponentialBuckets(9.375, 2, 10),
	},
	[]string{"action", "error"},
)

var promDecodeFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bdecode_http_decode_failures_total",
		Help: "The number of request bodies that failed to decode, by kind of failure",
	},
	[]string{"kind"},
)

// recordResponseDuration records the duration of time to respond to a Request
// in milliseconds.
func recordResponseDuration(action string, err error, duration time.Duration) {
	var errString string
	if err != nil {
		var de *bencode.Error
		switch {
		case errors.As(err, &de), errors.Is(err, bencode.ErrNotSingleValue):
			errString = metrics.ErrorKind(err)
			promDecodeFailuresTotal.WithLabelValues(errString).Inc()
		case bittorrent.IsClientError(err):
			errString = err.Error()
		default:
			errString = "internal error"
		}
	}

	promResponseDurationMilliseconds.
		WithLabelValues(action, errString).
		Observe(float64(duration.Nanoseconds()) / float64(time.Millisecond))
}
