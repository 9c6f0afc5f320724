package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/chihaya/bdecode/bencode"
	httpfrontend "github.com/chihaya/bdecode/frontend/http"
	"github.com/chihaya/bdecode/metainfo"
	"github.com/chihaya/bdecode/pkg/log"
	"github.com/chihaya/bdecode/pkg/metrics"
	"github.com/chihaya/bdecode/pkg/render"
	"github.com/chihaya/bdecode/pkg/stop"
	"github.com/chihaya/bdecode/storage"
)

// stdinPath is the argument naming standard input.
const stdinPath = "-"

// readInputs calls fn with the contents of every path, reading from stdin for
// "-" or when no paths are given.
func readInputs(stdin io.Reader, paths []string, fn func(name string, buf []byte) error) error {
	if len(paths) == 0 {
		paths = []string{stdinPath}
	}

	for _, path := range paths {
		var buf []byte
		var err error
		if path == stdinPath {
			buf, err = io.ReadAll(stdin)
		} else {
			buf, err = os.ReadFile(path)
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}

		if err := fn(path, buf); err != nil {
			return err
		}
	}

	return nil
}

// DecodeCmd decodes every input and writes its top-level values to w.
func DecodeCmd(w io.Writer, stdin io.Reader, paths []string, format string) error {
	write := render.YAML
	switch format {
	case "yaml":
	case "json":
		write = render.JSON
	default:
		return errors.Errorf("unknown output format %q", format)
	}

	return readInputs(stdin, paths, func(name string, buf []byte) error {
		values, err := bencode.Decode(buf)
		if err != nil {
			log.Debug("failed to decode", log.Fields{"input": name}, log.Err(err))
			return errors.Wrapf(err, "failed to decode %s", name)
		}
		return write(w, values)
	})
}

// InfoCmd parses every input as a metainfo file and writes its summary to w.
func InfoCmd(w io.Writer, stdin io.Reader, paths []string, format string) error {
	return readInputs(stdin, paths, func(name string, buf []byte) error {
		mi, err := metainfo.Parse(buf)
		if err != nil {
			return errors.Wrapf(err, "failed to parse %s", name)
		}

		summary := httpfrontend.NewSummary(mi)
		switch format {
		case "yaml":
			out, err := yaml.Marshal(summary)
			if err != nil {
				return err
			}
			_, err = w.Write(out)
			return err
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		default:
			return errors.Errorf("unknown output format %q", format)
		}
	})
}

// Run represents the state of a running instance of the service.
type Run struct {
	configFilePath string
	store          storage.Store
	sg             *stop.Group
}

// NewRun runs an instance of the service.
func NewRun(configFilePath string) (*Run, error) {
	r := &Run{
		configFilePath: configFilePath,
	}

	return r, r.Start(nil)
}

// Start begins an instance of the service.
//
// It is optional to provide an instance of the store to avoid the creation of
// a new one.
func (r *Run) Start(st storage.Store) error {
	configFile, err := ParseConfigFile(r.configFilePath)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	cfg := configFile.Bdecode

	if err := cfg.ApplyLogging(); err != nil {
		return errors.Wrap(err, "invalid logging config")
	}
	log.Info("loaded config", cfg)

	sg := stop.NewGroup()

	if cfg.MetricsAddr != "" {
		log.Info("starting metrics server", log.Fields{"addr": cfg.MetricsAddr})
		sg.Add(metrics.NewServer(cfg.MetricsAddr))
	}

	var owned storage.Store
	if st == nil {
		log.Info("starting storage", log.Fields{"name": cfg.Storage.Name})
		st, err = storage.NewStore(cfg.Storage.Name, cfg.Storage.Config)
		if err != nil {
			abortStart(sg, nil)
			return errors.Wrap(err, "failed to create storage")
		}
		owned = st
	}

	log.Info("starting HTTP frontend", cfg.HTTPConfig)
	fe, err := httpfrontend.NewFrontend(st, cfg.HTTPConfig)
	if err != nil {
		abortStart(sg, owned)
		return errors.Wrap(err, "failed to start HTTP frontend")
	}
	sg.Add(fe)

	r.sg = sg
	r.store = st

	return nil
}

// abortStart stops what a failed Start already brought up. st is nil when
// the store was not created by Start.
func abortStart(sg *stop.Group, st storage.Store) {
	if errs := sg.Stop().Wait(); len(errs) != 0 {
		log.Error("failed while shutting down after start failure", log.Err(combineErrors("frontends", errs)))
	}

	if st == nil {
		return
	}

	if errs := st.Stop().Wait(); len(errs) != 0 {
		log.Error("failed while shutting down storage after start failure", log.Err(combineErrors("storage", errs)))
	}
}

func combineErrors(prefix string, errs []error) error {
	errStrs := make([]string, 0, len(errs))
	for _, err := range errs {
		errStrs = append(errStrs, err.Error())
	}

	return errors.New(prefix + ": " + strings.Join(errStrs, "; "))
}

// Stop shuts down an instance of the service.
//
// When keepStore is true the store is left running and returned so that it
// can be passed to Start after a reload.
func (r *Run) Stop(keepStore bool) (storage.Store, error) {
	if errs := r.sg.Stop().Wait(); len(errs) != 0 {
		return nil, combineErrors("failed while shutting down frontends", errs)
	}

	if keepStore {
		return r.store, nil
	}

	if errs := r.store.Stop().Wait(); len(errs) != 0 {
		return nil, combineErrors("failed while shutting down storage", errs)
	}

	return nil, nil
}

// RootRunCmdFunc implements a Cobra command that runs an instance of the
// service and handles reloading and shutdown via process signals.
func RootRunCmdFunc(cmd *cobra.Command, args []string) error {
	configFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	r, err := NewRun(configFilePath)
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	reload := makeReloadChan()

	for {
		select {
		case <-reload:
			log.Info("reloading; received reload signal")
			st, err := r.Stop(true)
			if err != nil {
				return err
			}

			if err := r.Start(st); err != nil {
				st.Stop().Wait()
				return err
			}
		case <-quit:
			log.Info("shutting down; received shutdown signal")
			if _, err := r.Stop(false); err != nil {
				return err
			}

			return nil
		}
	}
}

// RootPreRunCmdFunc handles the flags that affect logging for every command.
func RootPreRunCmdFunc(cmd *cobra.Command, args []string) error {
	jsonLog, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if jsonLog {
		if err := log.SetFormat("json"); err != nil {
			return err
		}
		log.Info("enabled JSON logging")
	}

	debugLog, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return err
	}
	if debugLog {
		log.SetDebug(true)
		log.Info("enabled debug logging")
	}

	return nil
}

func main() {
	var rootCmd = &cobra.Command{
		Use:               "bdecode",
		Short:             "Bencode decoder",
		Long:              "A zero-copy bencode decoder and BitTorrent metainfo inspection service",
		PersistentPreRunE: RootPreRunCmdFunc,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().String("config", "/etc/bdecode.yaml", "location of configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "enable json logging")

	var decodeCmd = &cobra.Command{
		Use:   "decode [file...]",
		Short: "Decode bencoded files",
		Long:  "Decode every top-level value of each file, or of stdin when no file or \"-\" is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			return DecodeCmd(cmd.OutOrStdout(), cmd.InOrStdin(), args, format)
		},
	}
	decodeCmd.Flags().String("format", "yaml", "output format (yaml or json)")

	var infoCmd = &cobra.Command{
		Use:   "info [file...]",
		Short: "Summarize torrent files",
		Long:  "Parse each file as BitTorrent metainfo and print its infohashes, name and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			return InfoCmd(cmd.OutOrStdout(), cmd.InOrStdin(), args, format)
		},
	}
	infoCmd.Flags().String("format", "yaml", "output format (yaml or json)")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long:  "Serve the decode and torrent storage API until interrupted",
		Args:  cobra.NoArgs,
		RunE:  RootRunCmdFunc,
	}

	rootCmd.AddCommand(decodeCmd, infoCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal("failed when executing root cobra command", log.Err(err))
	}
}
