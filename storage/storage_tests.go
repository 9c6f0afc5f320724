package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/bdecode/bittorrent"
)

// TestStore tests a Store implementation against the interface.
func TestStore(t *testing.T, s Store) {
	testData := []struct {
		ih  bittorrent.InfoHash
		raw []byte
	}{
		{bittorrent.InfoHashFromString("00000000000000000001"), []byte("d4:infod4:name1:aee")},
		{bittorrent.InfoHashFromString("00000000000000000002"), []byte("d4:infod4:name1:bee")},
	}

	n, err := s.Len()
	require.Nil(t, err)
	require.Equal(t, 0, n)

	for _, c := range testData {
		// Test ErrDNE for non-existent documents.
		_, err := s.Get(c.ih)
		require.Equal(t, ErrResourceDoesNotExist, err)

		err = s.Delete(c.ih)
		require.Equal(t, ErrResourceDoesNotExist, err)

		// Test Put -> Get.
		raw := append([]byte{}, c.raw...)
		err = s.Put(c.ih, raw)
		require.Nil(t, err)

		// The store must not alias the caller's buffer.
		raw[0] = 'X'

		got, err := s.Get(c.ih)
		require.Nil(t, err)
		require.Equal(t, c.raw, got)
	}

	n, err = s.Len()
	require.Nil(t, err)
	require.Equal(t, len(testData), n)

	// Test Put replaces.
	replacement := []byte("d4:infod4:name1:cee")
	err = s.Put(testData[0].ih, replacement)
	require.Nil(t, err)

	got, err := s.Get(testData[0].ih)
	require.Nil(t, err)
	require.Equal(t, replacement, got)

	n, err = s.Len()
	require.Nil(t, err)
	require.Equal(t, len(testData), n)

	// Test Delete -> Get.
	for _, c := range testData {
		err := s.Delete(c.ih)
		require.Nil(t, err)

		_, err = s.Get(c.ih)
		require.Equal(t, ErrResourceDoesNotExist, err)
	}

	n, err = s.Len()
	require.Nil(t, err)
	require.Equal(t, 0, n)

	e := s.Stop()
	require.Nil(t, e.Wait())
}

// PutGet benchmarks storing and reading back a single document.
func PutGet(b *testing.B, s Store) {
	ih := bittorrent.InfoHashFromString("00000000000000000001")
	raw := []byte("d4:infod6:lengthi42e4:name4:spamee")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Put(ih, raw); err != nil {
			b.Fatal(err)
		}
		if _, err := s.Get(ih); err != nil {
			b.Fatal(err)
		}
	}
}
