package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/brettbedarf/varfs/config"
	"github.com/brettbedarf/varfs/internal/util"
	"github.com/brettbedarf/varfs/metrics"
	"github.com/brettbedarf/varfs/server"
	"github.com/brettbedarf/varfs/snapshot"
	"github.com/brettbedarf/varfs/tree"
	"github.com/spf13/cobra"
)

type options struct {
	verbose     int
	umount      bool
	debug       bool
	allowOther  bool
	configFile  string
	envFiles    []string
	in          string
	out         string
	alwaysWrite bool
	metricsAddr string
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "varfs [flags] <mountpoint>",
		Short: "Mount a structured document as a filesystem",
		Long: `varfs mounts a nested map as a FUSE filesystem. Maps become
directories and scalar values become files holding their text rendering.

The tree is loaded from --in (json, jsonc, yaml, toml or cbor, optionally
.zst compressed) and written to --out when the filesystem is unmounted.

Configuration precedence: defaults < --config file < VARFS_* environment
(and --env-file) < flags.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args[0])
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.verbose, "verbose", "v", 3, "Log verbosity level between 1 (error) and 5 (trace)")
	flags.BoolVarP(&opts.umount, "umount", "u", false,
		"Unmount the mountpoint first if needed. Useful for debuggers that don't exit properly.")
	flags.BoolVar(&opts.debug, "debug", false, "Log every FUSE request")
	flags.BoolVar(&opts.allowOther, "allow-other", false, "Let other users access the mount")
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to a yaml or json config file")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading VARFS_* variables")
	flags.StringVarP(&opts.in, "in", "i", "", "Snapshot to load the initial tree from")
	flags.StringVarP(&opts.out, "out", "o", "", "Snapshot to write the final tree to")
	flags.BoolVar(&opts.alwaysWrite, "always-write", false, "Write --out even if the tree did not change")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

// config builds the runtime config from defaults, the config file, the
// environment and finally any flags set explicitly on cmd.
func (o *options) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()

	if o.configFile != "" {
		override, err := config.LoadConfigOverrideFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.Merge(override)
	}

	override, err := config.LoadConfigOverrideEnv(config.EnvPrefix, o.envFiles...)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)

	flags := &config.ConfigOverride{}
	if cmd.Flags().Changed("verbose") {
		flags.LogLvl = &o.verbose
	}
	if cmd.Flags().Changed("debug") {
		flags.Debug = &o.debug
	}
	if cmd.Flags().Changed("allow-other") {
		flags.AllowOther = &o.allowOther
	}
	cfg.Merge(flags)

	return cfg, nil
}

// loadTree reads the initial tree from path, or starts empty when path is "".
func loadTree(path string) (*tree.Tree, error) {
	if path == "" {
		return tree.New(), nil
	}
	return snapshot.ReadFile(path)
}

// dump writes m to path unless its digest still equals initial. It reports
// whether a file was written.
func dump(path string, m tree.Map, initial string, always bool) (bool, error) {
	if path == "" {
		return false, nil
	}
	digest, err := snapshot.Digest(m)
	if err != nil {
		return false, err
	}
	if !always && digest == initial {
		return false, nil
	}
	if err := snapshot.WriteFile(path, m); err != nil {
		return false, err
	}
	return true, nil
}

// Unmount attempts made after a signal, and the pause between them.
const (
	unmountAttempts = 5
	unmountDelay    = 500 * time.Millisecond
)

type unmounter interface {
	Unmount() error
}

// unmount retries u.Unmount while the mount stays busy, e.g. a shell still
// sitting inside it. It returns the last error once attempts run out.
func unmount(u unmounter, attempts int, delay time.Duration) error {
	logger := util.GetLogger("main.unmount")

	var err error
	for i := range max(attempts, 1) {
		if err = u.Unmount(); err == nil {
			return nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Unmount failed")
		if i+1 < attempts {
			time.Sleep(delay)
		}
	}
	return err
}

func (o *options) run(cmd *cobra.Command, mnt string) error {
	cfg, err := o.config(cmd)
	if err != nil {
		return err
	}
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")
	logger.Info().
		Str("mnt", mnt).
		Str("in", o.in).
		Str("out", o.out).
		Msg("varfs initializing")

	if o.umount {
		umountCmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		umountCmd.Run() // nolint:errcheck
	}

	t, err := loadTree(o.in)
	if err != nil {
		logger.Fatal().Err(err).Str("in", o.in).Msg("Failed to load tree")
	}
	initial, err := snapshot.Digest(t.Value())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to digest tree")
	}

	fs := server.New(cfg, t)
	if err := fs.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Msg("Failed to mount filesystem")
	}

	var metricsSrv *http.Server
	if o.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(fs))
		metricsSrv = &http.Server{Addr: o.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", o.metricsAddr).Msg("Metrics server failed")
			}
		}()
		logger.Info().Str("addr", o.metricsAddr).Msg("Serving metrics")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	unmounted := make(chan struct{})
	go func() {
		fs.Wait()
		close(unmounted)
	}()

	logger.Info().Str("mountpoint", mnt).Str("session", fs.Session()).Msg("Filesystem mounted successfully")

	var unmountErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Received signal, unmounting filesystem")
		if unmountErr = unmount(fs, unmountAttempts, unmountDelay); unmountErr != nil {
			logger.Error().Err(unmountErr).Str("mountpoint", mnt).
				Msg("Failed to unmount filesystem; run fusermount -u once it is no longer busy")
		}
	case <-unmounted:
		logger.Info().Msg("Filesystem unmounted externally")
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	written, err := dump(o.out, fs.Value(), initial, o.alwaysWrite)
	if err != nil {
		return errors.Join(unmountErr, fmt.Errorf("failed to write %s: %w", o.out, err))
	}
	if written {
		logger.Info().Str("out", o.out).Msg("Wrote final tree")
	} else if o.out != "" {
		logger.Info().Str("out", o.out).Msg("Tree unchanged, skipped write")
	}
	if unmountErr != nil {
		return fmt.Errorf("failed to unmount %s: %w", mnt, unmountErr)
	}
	return nil
}

