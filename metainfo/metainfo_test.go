package metainfo

import (
	"crypto/sha1"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anacrolix/torrent/bencode"
	anacrolix "github.com/anacrolix/torrent/metainfo"
	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/require"

	bdecode "github.com/chihaya/bdecode/bencode"
	"github.com/chihaya/bdecode/bittorrent"
)

// compact strips the spaces used to keep fixtures readable.
func compact(s string) []byte {
	return []byte(strings.Replace(s, " ", "", -1))
}

const debianInfo = "d6:lengthi655360000e4:name35:debian-mac-12.1.0-amd64-netinst.iso12:piece lengthi262144e6:pieces40:aaaaaaaaaaaaaaaaaaaabbbbbbbbbbbbbbbbbbbbe"

var debianTorrent = []byte("d" +
	"8:announce41:http://bttracker.debian.org:6969/announce" +
	"7:comment33:Debian CD from cdimage.debian.org" +
	"10:created by13:mktorrent 1.1" +
	"13:creation datei1689511151e" +
	"4:info" + debianInfo +
	"8:url-listl29:https://cdimage.debian.org/a/e" +
	"e")

func TestParseSingleFile(t *testing.T) {
	mi, err := Parse(debianTorrent)
	require.Nil(t, err)

	require.Equal(t, "http://bttracker.debian.org:6969/announce", mi.Announce)
	require.Equal(t, "Debian CD from cdimage.debian.org", mi.Comment)
	require.Equal(t, "mktorrent 1.1", mi.CreatedBy)
	require.Equal(t, time.Unix(1689511151, 0).UTC(), mi.CreationDate)
	require.Equal(t, []string{"https://cdimage.debian.org/a/"}, mi.URLList)

	require.Equal(t, "debian-mac-12.1.0-amd64-netinst.iso", mi.Info.Name)
	require.Equal(t, int64(655360000), mi.Info.Length)
	require.Equal(t, int64(262144), mi.Info.PieceLength)
	require.Equal(t, 2, mi.Info.Pieces)
	require.False(t, mi.Info.Private)
	require.Equal(t, int64(655360000), mi.TotalLength())

	info := []byte(debianInfo)
	require.Equal(t, info, mi.InfoBytes)
	require.Equal(t, bittorrent.InfoHash(sha1.Sum(info)), mi.InfoHash)
	require.Equal(t, bittorrent.InfoHashV2(sha256.Sum256(info)), mi.InfoHashV2)
	require.Equal(t, []string{"http://bttracker.debian.org:6969/announce"}, mi.Trackers())
}

func TestParseMultiFile(t *testing.T) {
	buf := compact("d" +
		" 8:announce 8:http://a" +
		" 13:announce-list l l 8:http://a 8:http://b e l 8:http://c e l i1e e 4:oops e" +
		" 4:info d" +
		"  5:files l" +
		"   d 6:lengthi10e 4:path l 3:dir 5:a.txt e e" +
		"   d 6:lengthi32e 4:path l 5:b.txt e e" +
		"   3:bad" +
		"  e" +
		"  4:name 4:root" +
		"  7:privatei1e" +
		" e" +
		" 8:url-list 8:http://w" +
		" e")

	mi, err := Parse(buf)
	require.Nil(t, err)

	require.Equal(t, [][]string{{"http://a", "http://b"}, {"http://c"}}, mi.AnnounceList)
	require.Equal(t, []string{"http://a", "http://b", "http://c"}, mi.Trackers())
	require.Equal(t, []string{"http://w"}, mi.URLList)

	require.True(t, mi.Info.Private)
	require.Equal(t, []File{
		{Path: []string{"dir", "a.txt"}, Length: 10},
		{Path: []string{"b.txt"}, Length: 32},
	}, mi.Info.Files)
	require.Equal(t, int64(42), mi.TotalLength())
}

func TestParseDuplicateInfoUsesLast(t *testing.T) {
	buf := compact("d 4:info d 4:name 5:first e 4:info d 4:name 4:last e e")

	mi, err := Parse(buf)
	require.Nil(t, err)
	require.Equal(t, "last", mi.Info.Name)
	require.Equal(t, compact("d 4:name 4:last e"), mi.InfoBytes)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("l4:infoe"))
	require.Equal(t, ErrNotDictionary, err)

	_, err = Parse(compact("d 8:announce 8:http://a e"))
	require.Equal(t, ErrMissingInfo, err)

	_, err = Parse(compact("d 4:info 4:spam e"))
	require.Equal(t, ErrMissingInfo, err)

	_, err = Parse([]byte("d4:infode"))
	require.NotNil(t, err)
	require.True(t, errors.Is(err, bdecode.ErrStructuralMismatch))

	_, err = Parse([]byte("d4:infodeex"))
	require.True(t, errors.Is(err, bdecode.ErrStructuralMismatch))

	_, err = Parse([]byte("d4:infod6:lengthi-0eee"))
	require.True(t, errors.Is(err, bdecode.ErrInvalidInteger))

	_, err = Parse([]byte("dede"))
	require.True(t, errors.Is(err, bdecode.ErrNotSingleValue))
}

func TestParseMatchesAnacrolix(t *testing.T) {
	private := true
	info := anacrolix.Info{
		Name:        "fixture",
		PieceLength: 16384,
		Pieces:      []byte(strings.Repeat("p", 3*20)),
		Private:     &private,
		Files: []anacrolix.FileInfo{
			{Length: 20000, Path: []string{"one"}},
			{Length: 12768, Path: []string{"sub", "two"}},
		},
	}
	infoBytes, err := bencode.Marshal(info)
	require.Nil(t, err)

	ref := anacrolix.MetaInfo{
		InfoBytes:    infoBytes,
		Announce:     "udp://tracker.example:6969",
		AnnounceList: anacrolix.AnnounceList{{"udp://tracker.example:6969"}, {"http://backup.example/announce"}},
		CreationDate: 1500000000,
		Comment:      "generated",
		CreatedBy:    "anacrolix",
		Encoding:     "UTF-8",
	}
	buf, err := bencode.Marshal(ref)
	require.Nil(t, err)

	mi, err := Parse(buf)
	require.Nil(t, err)

	require.Equal(t, [20]byte(ref.HashInfoBytes()), [20]byte(mi.InfoHash))
	require.Equal(t, "fixture", mi.Info.Name)
	require.Equal(t, 3, mi.Info.Pieces)
	require.True(t, mi.Info.Private)
	require.Equal(t, int64(32768), mi.TotalLength())
	require.Equal(t, []string{"udp://tracker.example:6969", "http://backup.example/announce"}, mi.Trackers())
	require.Equal(t, "UTF-8", mi.Encoding)
}

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Parse(debianTorrent)
	}
}
