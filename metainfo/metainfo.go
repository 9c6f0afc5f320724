// Package metainfo reads the fields of a BitTorrent metainfo (.torrent) file
// out of a decoded bencode tree.
//
// Parsing is lenient: fields that are absent or hold an unexpected kind of
// value are left at their zero value. The only hard requirements are that the
// input decodes as a single dictionary and that it has an info dictionary,
// since the infohash cannot be computed otherwise.
package metainfo

import (
	"crypto/sha1"
	"time"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"

	"github.com/chihaya/bdecode/bencode"
	"github.com/chihaya/bdecode/bittorrent"
	"github.com/chihaya/bdecode/pkg/log"
)

// ErrNotDictionary is returned when the document is not a dictionary.
var ErrNotDictionary = bittorrent.ClientError("metainfo: document is not a dictionary")

// ErrMissingInfo is returned when the document has no info dictionary.
var ErrMissingInfo = bittorrent.ClientError("metainfo: missing info dictionary")

// pieceHashSize is the size of a single v1 piece hash.
const pieceHashSize = sha1.Size

// File describes one file of a multi-file torrent.
type File struct {
	Path   []string
	Length int64
}

// Info holds the fields of the info dictionary.
type Info struct {
	Name        string
	PieceLength int64
	Pieces      int
	Length      int64
	Files       []File
	Private     bool
	MetaVersion int64
}

// MetaInfo is the parsed content of a metainfo file.
type MetaInfo struct {
	Announce     string
	AnnounceList [][]string
	URLList      []string
	Comment      string
	CreatedBy    string
	Encoding     string
	CreationDate time.Time

	Info       Info
	InfoHash   bittorrent.InfoHash
	InfoHashV2 bittorrent.InfoHashV2

	// InfoBytes is the raw bencoded info dictionary. It aliases the buffer
	// passed to Parse.
	InfoBytes []byte
}

// Parse parses a metainfo file.
//
// The returned MetaInfo does not reference buf except through InfoBytes.
func Parse(buf []byte) (*MetaInfo, error) {
	v, err := bencode.DecodeSingle(buf)
	if err != nil {
		return nil, errors.Wrap(err, "metainfo: failed to decode")
	}

	root, ok := v.(bencode.Dict)
	if !ok {
		return nil, ErrNotDictionary
	}

	info, ok := root.Dict("info")
	if !ok {
		return nil, ErrMissingInfo
	}

	raw, err := rawValue(buf, "info")
	if err != nil {
		return nil, errors.Wrap(err, "metainfo: failed to locate info dictionary")
	}

	mi := &MetaInfo{
		Announce:     stringValue(root, "announce"),
		AnnounceList: announceList(root),
		URLList:      urlList(root),
		Comment:      stringValue(root, "comment"),
		CreatedBy:    stringValue(root, "created by"),
		Encoding:     stringValue(root, "encoding"),
		Info:         parseInfo(info),
		InfoHash:     sha1.Sum(raw),
		InfoHashV2:   sha256.Sum256(raw),
		InfoBytes:    raw,
	}
	if date, ok := root.Integer("creation date"); ok {
		mi.CreationDate = time.Unix(int64(date), 0).UTC()
	}

	log.Debug("parsed metainfo", mi)
	return mi, nil
}

// TotalLength returns the sum of the lengths of every file in the torrent.
func (mi *MetaInfo) TotalLength() int64 {
	if len(mi.Info.Files) == 0 {
		return mi.Info.Length
	}

	var total int64
	for _, f := range mi.Info.Files {
		total += f.Length
	}
	return total
}

// Trackers returns every tracker URL of the torrent, announce first, without
// duplicates.
func (mi *MetaInfo) Trackers() []string {
	seen := make(map[string]struct{})
	var trackers []string

	add := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		trackers = append(trackers, url)
	}

	add(mi.Announce)
	for _, tier := range mi.AnnounceList {
		for _, url := range tier {
			add(url)
		}
	}

	return trackers
}

// LogFields renders the metainfo as a set of log fields.
func (mi *MetaInfo) LogFields() log.Fields {
	return log.Fields{
		"name":        mi.Info.Name,
		"infoHash":    mi.InfoHash,
		"infoHashV2":  mi.InfoHashV2,
		"length":      mi.TotalLength(),
		"files":       len(mi.Info.Files),
		"pieces":      mi.Info.Pieces,
		"pieceLength": mi.Info.PieceLength,
		"private":     mi.Info.Private,
		"trackers":    len(mi.Trackers()),
	}
}

// rawValue returns the bencoded bytes of the value stored under key in the
// top-level dictionary of buf. When the key is repeated, the last occurrence
// wins, matching the decoded tree.
//
// buf must already be known to decode as a single dictionary.
func rawValue(buf []byte, key string) ([]byte, error) {
	var raw []byte
	off := 1
	for off < len(buf) && buf[off] != 'e' {
		k, start, err := bencode.DecodeValue(buf, off)
		if err != nil {
			return nil, err
		}
		_, end, err := bencode.DecodeValue(buf, start)
		if err != nil {
			return nil, err
		}

		if kb, ok := k.(bencode.ByteString); ok && string(kb) == key {
			raw = buf[start:end:end]
		}
		off = end
	}

	if raw == nil {
		return nil, ErrMissingInfo
	}
	return raw, nil
}

func parseInfo(d bencode.Dict) Info {
	info := Info{
		Name:        stringValue(d, "name"),
		PieceLength: intValue(d, "piece length"),
		Length:      intValue(d, "length"),
		Private:     intValue(d, "private") == 1,
		MetaVersion: intValue(d, "meta version"),
	}

	if pieces, ok := d.ByteString("pieces"); ok {
		info.Pieces = len(pieces) / pieceHashSize
	}

	if files, ok := d.List("files"); ok {
		for _, f := range files {
			fd, ok := f.(bencode.Dict)
			if !ok {
				continue
			}
			info.Files = append(info.Files, File{
				Path:   stringList(fd, "path"),
				Length: intValue(fd, "length"),
			})
		}
	}

	return info
}

func announceList(d bencode.Dict) [][]string {
	tiers, ok := d.List("announce-list")
	if !ok {
		return nil
	}

	var list [][]string
	for _, t := range tiers {
		tier, ok := t.(bencode.List)
		if !ok {
			continue
		}
		urls := byteStrings(tier)
		if len(urls) > 0 {
			list = append(list, urls)
		}
	}
	return list
}

// urlList reads BEP 19 web seeds, which may be a single string or a list.
func urlList(d bencode.Dict) []string {
	switch v := d["url-list"].(type) {
	case bencode.ByteString:
		return []string{v.String()}
	case bencode.List:
		return byteStrings(v)
	default:
		return nil
	}
}

func stringValue(d bencode.Dict, key string) string {
	if s, ok := d.ByteString(key); ok {
		return s.String()
	}
	return ""
}

func intValue(d bencode.Dict, key string) int64 {
	if i, ok := d.Integer(key); ok {
		return int64(i)
	}
	return 0
}

func stringList(d bencode.Dict, key string) []string {
	l, ok := d.List(key)
	if !ok {
		return nil
	}
	return byteStrings(l)
}

func byteStrings(l bencode.List) []string {
	var s []string
	for _, v := range l {
		if b, ok := v.(bencode.ByteString); ok {
			s = append(s, b.String())
		}
	}
	return s
}
