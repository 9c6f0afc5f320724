// Package bittorrent implements the identifiers shared by everything that
// inspects BitTorrent metainfo.
package bittorrent

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidInfoHash is returned when a hex encoded infohash cannot be
// parsed.
var ErrInvalidInfoHash = ClientError("invalid infohash")

// InfoHash represents a v1 (SHA-1) infohash.
type InfoHash [20]byte

// InfoHashFromBytes creates an InfoHash from a byte slice.
//
// It panics if b is not 20 bytes long.
func InfoHashFromBytes(b []byte) InfoHash {
	if len(b) != 20 {
		panic("infohash must be 20 bytes")
	}

	var buf [20]byte
	copy(buf[:], b)
	return InfoHash(buf)
}

// InfoHashFromString creates an InfoHash from a string.
//
// It panics if s is not 20 bytes long.
func InfoHashFromString(s string) InfoHash {
	if len(s) != 20 {
		panic("infohash must be 20 bytes")
	}

	var buf [20]byte
	copy(buf[:], s)
	return InfoHash(buf)
}

// InfoHashFromHexString parses a base16 encoded InfoHash, as found in URLs
// and magnet links.
func InfoHashFromHexString(s string) (InfoHash, error) {
	var ih InfoHash
	if len(s) != 40 {
		return ih, ErrInvalidInfoHash
	}

	if _, err := hex.Decode(ih[:], []byte(s)); err != nil {
		return ih, ErrInvalidInfoHash
	}
	return ih, nil
}

// String implements fmt.Stringer, returning the base16 encoded InfoHash.
func (i InfoHash) String() string {
	return fmt.Sprintf("%x", i[:])
}

// InfoHashV2 represents a v2 (SHA-256) infohash as introduced by BEP 52.
type InfoHashV2 [32]byte

// String implements fmt.Stringer, returning the base16 encoded InfoHashV2.
func (i InfoHashV2) String() string {
	return fmt.Sprintf("%x", i[:])
}

// Truncated returns the first 20 bytes of the v2 infohash, which is what v2
// torrents use wherever a 20 byte infohash is expected.
func (i InfoHashV2) Truncated() InfoHash {
	return InfoHashFromBytes(i[:20])
}

// ClientError represents an error that is safe to expose to clients.
type ClientError string

// Error implements the error interface for ClientError.
func (c ClientError) Error() string { return string(c) }

// IsClientError reports whether err is, or wraps, a ClientError.
func IsClientError(err error) bool {
	var cerr ClientError
	return errors.As(err, &cerr)
}
