package bittorrent

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var infoHashTable = []struct {
	name     string
	infoHash [20]byte
	raw      string
	hex      string
}{
	{"empty", [20]byte{}, "\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00", "0000000000000000000000000000000000000000"},
	{"real", [20]byte{0x41, 0x5a, 0x32, 0x35, 0x30, 0x30, 0x42, 0x54, 0x65, 0x59, 0x55, 0x7a, 0x79, 0x61, 0x62, 0x41, 0x66, 0x6f, 0x36, 0x55}, "\x41\x5a\x32\x35\x30\x30\x42\x54\x65\x59\x55\x7a\x79\x61\x62\x41\x66\x6f\x36\x55", "415a3235303042546559557a79616241666f3655"},
}

func TestInfoHashString(t *testing.T) {
	for _, tt := range infoHashTable {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.hex, InfoHash(tt.infoHash).String())
		})
	}
}

func TestInfoHashFromString(t *testing.T) {
	for _, tt := range infoHashTable {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.infoHash, [20]byte(InfoHashFromString(tt.raw)))
			require.Equal(t, tt.infoHash, [20]byte(InfoHashFromBytes([]byte(tt.raw))))
		})
	}
}

func TestInfoHashFromHexString(t *testing.T) {
	for _, tt := range infoHashTable {
		t.Run(tt.name, func(t *testing.T) {
			ih, err := InfoHashFromHexString(tt.hex)
			require.Nil(t, err)
			require.Equal(t, tt.infoHash, [20]byte(ih))
		})
	}

	for _, bad := range []string{"", "00", "zz5a3235303042546559557a79616241666f3655", "415a3235303042546559557a79616241666f365500"} {
		t.Run(fmt.Sprintf("invalid %q", bad), func(t *testing.T) {
			_, err := InfoHashFromHexString(bad)
			require.Equal(t, ErrInvalidInfoHash, err)
		})
	}
}

func TestInfoHashFromBytesPanics(t *testing.T) {
	require.Panics(t, func() { InfoHashFromBytes([]byte("short")) })
	require.Panics(t, func() { InfoHashFromString("short") })
}

func TestInfoHashV2Truncated(t *testing.T) {
	var v2 InfoHashV2
	for i := range v2 {
		v2[i] = byte(i)
	}

	require.Equal(t, "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", v2.String())
	require.Equal(t, "000102030405060708090a0b0c0d0e0f10111213", v2.Truncated().String())
}

func TestIsClientError(t *testing.T) {
	require.True(t, IsClientError(ErrInvalidInfoHash))
	require.True(t, IsClientError(errors.Wrap(ErrInvalidInfoHash, "route")))
	require.False(t, IsClientError(errors.New("internal")))
	require.False(t, IsClientError(nil))
}
