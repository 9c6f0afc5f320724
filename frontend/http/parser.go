package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/chihaya/bdecode/bittorrent"
)

// ErrBodyTooLarge is returned when a request body exceeds the configured
// maximum size.
var ErrBodyTooLarge = bittorrent.ClientError("request body too large")

// readBody reads the whole request body, failing with ErrBodyTooLarge once
// more than maxSize bytes have been read.
func readBody(w http.ResponseWriter, r *http.Request, maxSize int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, err
	}

	return body, nil
}

// parseInfoHash parses the hex encoded infohash route parameter.
func parseInfoHash(ps httprouter.Params) (bittorrent.InfoHash, error) {
	return bittorrent.InfoHashFromHexString(ps.ByName("infohash"))
}
