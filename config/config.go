// Package config assembles famd's runtime configuration from CLI flags,
// environment variables, and an optional gaminrc-style policy file —
// the ambient configuration layer SPEC_FULL.md adds, built with the same
// spf13/cobra + spf13/viper stack the teacher's CLI entrypoints use.
package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/famd/fs"
)

// Config is the fully resolved set of daemon runtime options.
type Config struct {
	// SessionID is the positional session identifier a launching client
	// passes on argv (spec §4.8: one daemon per (uid, session-id) pair).
	SessionID string

	// NoTimeout disables the idle auto-exit timer (spec §4.8, `--notimeout`).
	NoTimeout bool

	// PollOnly forces every node through the polling engine, never arming
	// a kernel backend (spec §4.7, `--pollonly` or GAM_TEST_DNOTIFY=1).
	PollOnly bool

	// Debug enables verbose logging (`--debug`, GAM_DEBUG or
	// GAMIN_DEBUG_SERVER).
	Debug bool

	// MetricsAddr, when non-empty, is the address famd serves Prometheus
	// metrics on.
	MetricsAddr string

	// GaminRCPath is an optional path to a gaminrc policy file.
	GaminRCPath string
}

// NewRootCommand builds the famd cobra command. run receives the Config
// once flags and environment have been parsed; the gaminrc file named by
// GaminRCPath is not read here (LoadPolicy reads it).
func NewRootCommand(run func(cfg *Config) error) *cobra.Command {
	v := viper.New()
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:   "famd [session-id]",
		Short: "famd is a per-session file alteration monitor daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.SessionID = args[0]
			}
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			v.SetEnvPrefix("gam")
			v.AutomaticEnv()
			_ = v.BindEnv("debug", "GAM_DEBUG", "GAMIN_DEBUG_SERVER")
			_ = v.BindEnv("pollonly", "GAM_TEST_DNOTIFY")

			cfg.NoTimeout = v.GetBool("notimeout")
			cfg.PollOnly = v.GetBool("pollonly")
			cfg.Debug = v.GetBool("debug")
			cfg.MetricsAddr = v.GetString("metrics-addr")
			cfg.GaminRCPath = v.GetString("config")

			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.Bool("notimeout", false, "disable idle auto-exit")
	flags.Bool("pollonly", false, "force poll-only monitoring, never arm a kernel backend")
	flags.Bool("debug", false, "enable verbose debug logging")
	flags.String("metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	flags.String("config", "", "path to a gaminrc policy file")

	return cmd
}

// LoadPolicy reads a gaminrc file, if cfg names one, into a fs.Policy and
// fs.Excludes pair. With no file configured it returns sane defaults.
func LoadPolicy(cfg *Config) (*fs.Policy, fs.Excludes, error) {
	if cfg.GaminRCPath == "" {
		return fs.NewPolicy(), fs.NoExcludes, nil
	}
	return ParseGaminRC(cfg.GaminRCPath)
}
