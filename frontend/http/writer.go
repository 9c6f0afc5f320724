package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/chihaya/bdecode/bencode"
	"github.com/chihaya/bdecode/bittorrent"
	"github.com/chihaya/bdecode/metainfo"
	"github.com/chihaya/bdecode/pkg/log"
	"github.com/chihaya/bdecode/pkg/metrics"
	"github.com/chihaya/bdecode/pkg/render"
	"github.com/chihaya/bdecode/storage"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

// Summary describes a stored metainfo file.
type Summary struct {
	InfoHash            string     `json:"infohash" yaml:"infohash"`
	InfoHashV2          string     `json:"infohash_v2" yaml:"infohash_v2"`
	InfoHashV2Truncated string     `json:"infohash_v2_truncated" yaml:"infohash_v2_truncated"`
	Name                string     `json:"name" yaml:"name"`
	Length              int64      `json:"length" yaml:"length"`
	PieceLength         int64      `json:"piece_length" yaml:"piece_length"`
	Pieces              int        `json:"pieces" yaml:"pieces"`
	Files               int        `json:"files" yaml:"files"`
	Private             bool       `json:"private" yaml:"private"`
	Trackers            []string   `json:"trackers" yaml:"trackers"`
	Comment             string     `json:"comment,omitempty" yaml:"comment,omitempty"`
	CreatedBy           string     `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreationDate        *time.Time `json:"creation_date,omitempty" yaml:"creation_date,omitempty"`
}

// NewSummary summarizes mi.
func NewSummary(mi *metainfo.MetaInfo) Summary {
	s := Summary{
		InfoHash:            mi.InfoHash.String(),
		InfoHashV2:          mi.InfoHashV2.String(),
		InfoHashV2Truncated: mi.InfoHashV2.Truncated().String(),
		Name:                mi.Info.Name,
		Length:              mi.TotalLength(),
		PieceLength:         mi.Info.PieceLength,
		Pieces:              mi.Info.Pieces,
		Files:               len(mi.Info.Files),
		Private:             mi.Info.Private,
		Trackers:            mi.Trackers(),
		Comment:             mi.Comment,
		CreatedBy:           mi.CreatedBy,
	}

	if s.Trackers == nil {
		s.Trackers = []string{}
	}

	if !mi.CreationDate.IsZero() {
		date := mi.CreationDate
		s.CreationDate = &date
	}

	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError communicates an error to a client over HTTP.
//
// Decode failures are reported with their kind and, for failures the decoder
// located, the offset in the request body.
func WriteError(w http.ResponseWriter, err error) error {
	resp := errorResponse{Error: "internal server error"}
	status := http.StatusInternalServerError

	var de *bencode.Error
	switch {
	case errors.As(err, &de):
		status = http.StatusBadRequest
		resp.Error = de.Error()
		resp.Kind = de.Kind.String()
		offset := de.Offset
		resp.Offset = &offset
	case errors.Is(err, bencode.ErrNotSingleValue):
		status = http.StatusBadRequest
		resp.Error = err.Error()
		resp.Kind = metrics.ErrorKind(err)
	case errors.Is(err, storage.ErrResourceDoesNotExist):
		status = http.StatusNotFound
		resp.Error = err.Error()
	case errors.Is(err, ErrBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
		resp.Error = err.Error()
	case errors.Is(err, render.ErrTooDeep):
		status = http.StatusBadRequest
		resp.Error = err.Error()
	case bittorrent.IsClientError(err):
		status = http.StatusBadRequest
		resp.Error = err.Error()
	default:
		log.Error("http: internal error", log.Err(err))
	}

	return writeJSON(w, status, resp)
}

// WriteValues communicates the values decoded from a request body, as
// converted by render.Trees, to a client over HTTP.
func WriteValues(w http.ResponseWriter, trees []interface{}) error {
	return writeJSON(w, http.StatusOK, map[string]interface{}{
		"values": trees,
	})
}

// WriteSummary communicates the summary of a metainfo file to a client over
// HTTP.
func WriteSummary(w http.ResponseWriter, status int, mi *metainfo.MetaInfo) error {
	return writeJSON(w, status, NewSummary(mi))
}
