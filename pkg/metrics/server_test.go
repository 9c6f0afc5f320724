package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/bdecode/bencode"
)

func TestHandler(t *testing.T) {
	for _, path := range []string{"/metrics", "/debug/pprof/", "/debug/pprof/cmdline"} {
		w := httptest.NewRecorder()
		Handler().ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestErrorKind(t *testing.T) {
	_, fatal := bencode.Decode([]byte("i-0e"))
	_, mismatch := bencode.Decode([]byte("x"))
	_, multiple := bencode.DecodeSingle([]byte("i1ei2e"))

	var table = []struct {
		err      error
		expected string
	}{
		{nil, "none"},
		{fatal, "invalid integer"},
		{fmt.Errorf("wrapped: %w", fatal), "invalid integer"},
		{mismatch, "structural mismatch"},
		{multiple, "not single value"},
		{errors.New("disk on fire"), "other"},
	}

	for _, tt := range table {
		require.Equal(t, tt.expected, ErrorKind(tt.err))
	}
}
