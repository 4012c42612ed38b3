package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gozephyr/kvstore"
	"github.com/gozephyr/kvstore/internal/config"
	"github.com/gozephyr/kvstore/log"
	"github.com/gozephyr/kvstore/serializer"
	"github.com/gozephyr/kvstore/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	v       = config.NewViper()
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kvstore",
	Short: "In-memory key-value store with per-entry TTL",
	Long: `kvstore keeps string keys and values in memory, expiring entries whose
time-to-live has elapsed. Without a subcommand it starts the interactive
command loop.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE:              runREPL,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./kvstore.yaml or $HOME/kvstore.yaml)")
	flags.String("log-level", "info", "log level (error, warn, info, debug)")
	flags.Int("max-size", 0, "maximum number of entries, 0 for unbounded")
	flags.String("policy", "lru", "eviction policy when full (lru, fifo, lfu)")
	flags.Duration("cleanup-interval", time.Minute, "how often expired entries are reaped in the background, 0 disables it")
	flags.String("snapshot", "", "snapshot file loaded on start and written on exit")

	cobra.CheckErr(v.BindPFlag("log_level", flags.Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("max_size", flags.Lookup("max-size")))
	cobra.CheckErr(v.BindPFlag("policy", flags.Lookup("policy")))
	cobra.CheckErr(v.BindPFlag("cleanup_interval", flags.Lookup("cleanup-interval")))
	cobra.CheckErr(v.BindPFlag("snapshot.path", flags.Lookup("snapshot")))
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := config.ReadFile(v, cfgFile); err != nil {
		return err
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := log.SetLevel(cfg.Level()); err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("using config file", "path", used)
	}
	return nil
}

// newStore builds the store described by the configuration and restores
// the snapshot, if one is configured and present
func newStore(reg prometheus.Registerer) (*kvstore.Store[string, string], error) {
	exporter, err := cfg.NewExporter(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	s, err := kvstore.New[string, string](cfg.StoreOptions(exporter, log.Default())...)
	if err != nil {
		return nil, err
	}

	if cfg.Snapshot.Path == "" {
		return s, nil
	}

	header, err := snapshot.Load[string, string](cfg.Snapshot.Path, s, serializer.String{}, serializer.String{})
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("no snapshot found, starting empty", "path", cfg.Snapshot.Path)
	case err != nil:
		s.Close()
		return nil, err
	default:
		log.Info("snapshot loaded", "path", cfg.Snapshot.Path, "id", header.ID, "count", header.Count)
	}
	return s, nil
}

// saveSnapshot writes the configured snapshot, if any
func saveSnapshot(s *kvstore.Store[string, string]) error {
	if cfg.Snapshot.Path == "" {
		return nil
	}

	var opts []snapshot.Option
	if cfg.Snapshot.Compress {
		opts = append(opts, snapshot.WithCompression(-1))
	}

	header, err := snapshot.Save[string, string](cfg.Snapshot.Path, s, serializer.String{}, serializer.String{}, opts...)
	if err != nil {
		return err
	}
	log.Info("snapshot saved", "path", cfg.Snapshot.Path, "id", header.ID, "count", header.Count)
	return nil
}
