package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/bdecode/bencode"
	"github.com/chihaya/bdecode/pkg/render"
	"github.com/chihaya/bdecode/pkg/stop"
	"github.com/chihaya/bdecode/storage"
	"github.com/chihaya/bdecode/storage/memory"
)

const testTorrent = "d8:announce16:http://tracker/a4:infod6:lengthi1024e4:name8:test.iso12:piece lengthi512e6:pieces20:aaaaaaaaaaaaaaaaaaaaee"

func TestDecodeCmd(t *testing.T) {
	var out bytes.Buffer
	err := DecodeCmd(&out, strings.NewReader("d4:spaml1:a1:bee"), nil, "json")
	require.Nil(t, err)
	require.JSONEq(t, `[{"spam": ["a", "b"]}]`, out.String())

	out.Reset()
	path := filepath.Join(t.TempDir(), "values.bencode")
	require.Nil(t, os.WriteFile(path, []byte("i42e"), 0o600))

	err = DecodeCmd(&out, strings.NewReader("4:spam"), []string{path, stdinPath}, "yaml")
	require.Nil(t, err)
	require.Equal(t, "- 42\n- spam\n", out.String())
}

func TestDecodeCmdErrors(t *testing.T) {
	var out bytes.Buffer

	err := DecodeCmd(&out, strings.NewReader("i-0e"), nil, "json")
	require.True(t, errors.Is(err, bencode.ErrInvalidInteger))

	err = DecodeCmd(&out, strings.NewReader("le"), nil, "toml")
	require.NotNil(t, err)

	err = DecodeCmd(&out, nil, []string{filepath.Join(t.TempDir(), "missing")}, "json")
	require.NotNil(t, err)

	deep := strings.Repeat("l", render.MaxDepth+1) + strings.Repeat("e", render.MaxDepth+1)
	err = DecodeCmd(&out, strings.NewReader(deep), nil, "json")
	require.True(t, errors.Is(err, render.ErrTooDeep))
}

func TestInfoCmd(t *testing.T) {
	var out bytes.Buffer
	err := InfoCmd(&out, strings.NewReader(testTorrent), nil, "json")
	require.Nil(t, err)

	var summary map[string]interface{}
	require.Nil(t, json.Unmarshal(out.Bytes(), &summary))
	require.Equal(t, "test.iso", summary["name"])
	require.Equal(t, float64(1024), summary["length"])
	require.Len(t, summary["infohash"], 40)
	require.Len(t, summary["infohash_v2"], 64)
	require.Equal(t, summary["infohash_v2"].(string)[:40], summary["infohash_v2_truncated"])

	out.Reset()
	err = InfoCmd(&out, strings.NewReader(testTorrent), nil, "yaml")
	require.Nil(t, err)
	require.Contains(t, out.String(), "name: test.iso\n")

	err = InfoCmd(&out, strings.NewReader("le"), nil, "yaml")
	require.NotNil(t, err)
}

// recordingStore is a memory store that records whether it was stopped.
type recordingStore struct {
	storage.Store
	stopped chan struct{}
}

func (s *recordingStore) Stop() stop.Result {
	close(s.stopped)
	return s.Store.Stop()
}

func newRecordingStore() (*recordingStore, error) {
	st, err := memory.New(memory.Config{ShardCount: 1})
	if err != nil {
		return nil, err
	}
	return &recordingStore{Store: st, stopped: make(chan struct{})}, nil
}

var lastRecordingStore *recordingStore

type recordingDriver struct{}

func (recordingDriver) NewStore(interface{}) (storage.Store, error) {
	st, err := newRecordingStore()
	lastRecordingStore = st
	return st, err
}

func init() {
	storage.RegisterDriver("recording", recordingDriver{})
}

func isStopped(s *recordingStore) bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	addr := ln.Addr().String()
	require.Nil(t, ln.Close())
	return addr
}

func TestStartFailureReleasesResources(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer busy.Close()

	var table = []struct {
		name         string
		storage      string
		provided     bool
		storeStopped bool
	}{
		{"unknown storage", "nonexistent", false, false},
		{"created store", "recording", false, true},
		{"provided store", "recording", true, false},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			metricsAddr := freeAddr(t)
			path := writeConfig(t, fmt.Sprintf(
				"bdecode:\n  metrics_addr: %s\n  http:\n    addr: %s\n  storage:\n    name: %s\n",
				metricsAddr, busy.Addr(), tt.storage,
			))

			var provided *recordingStore
			var st storage.Store
			if tt.provided {
				provided, err = newRecordingStore()
				require.Nil(t, err)
				st = provided
			}

			lastRecordingStore = nil
			r := &Run{configFilePath: path}
			require.NotNil(t, r.Start(st))
			require.Nil(t, r.sg)
			require.Nil(t, r.store)

			switch {
			case tt.provided:
				require.False(t, isStopped(provided), "a provided store belongs to the caller")
				provided.Stop().Wait()
			case tt.storeStopped:
				require.NotNil(t, lastRecordingStore)
				require.True(t, isStopped(lastRecordingStore))
			}

			// The metrics server must give its address back.
			require.Eventually(t, func() bool {
				ln, err := net.Listen("tcp", metricsAddr)
				if err != nil {
					return false
				}
				ln.Close()
				return true
			}, 5*time.Second, 10*time.Millisecond)
		})
	}
}
