// Command famd is the per-session file alteration monitor daemon: it
// binds the Unix socket a famclient connection dials, drives the
// polling/kernel-backed engine, and exits once idle (unless --notimeout
// is set). Grounded on original_source/server/gam_server.c's main().
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nabbar/famd/client"
	"github.com/nabbar/famd/config"
	"github.com/nabbar/famd/kernel"
	"github.com/nabbar/famd/kernel/fsnotify"
	"github.com/nabbar/famd/kernel/pollonly"
	"github.com/nabbar/famd/logger"
	"github.com/nabbar/famd/metrics"
	"github.com/nabbar/famd/server"
)

func main() {
	cmd := config.NewRootCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.New()
	logger.SetVerbose(log, cfg.Debug)

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("%d", os.Getpid())
	}

	sockPath, err := client.SocketPath(sessionID)
	if err != nil {
		return err
	}
	_ = os.Remove(sockPath)

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return err
	}
	defer ln.Close()
	if err := os.Chmod(sockPath, 0o600); err != nil {
		log.WithError(err).Warn("could not restrict socket permissions")
	}

	policy, excludes, err := config.LoadPolicy(cfg)
	if err != nil {
		return err
	}

	backend := selectBackend(cfg, log)

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		go serveMetrics(cfg.MetricsAddr, m, log)
	}

	srv := server.New(ln, backend, policy, excludes, cfg.NoTimeout, log, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sig
		cancel()
	}()

	log.WithField("socket", sockPath).Info("famd listening")
	return srv.Run(ctx)
}

func selectBackend(cfg *config.Config, log *logrus.Logger) kernel.Backend {
	if cfg.PollOnly {
		return pollonly.New()
	}
	b, err := fsnotify.New()
	if err != nil {
		log.WithError(err).Warn("fsnotify backend unavailable, falling back to poll-only monitoring")
		return pollonly.New()
	}
	return b
}

func serveMetrics(addr string, m *metrics.Metrics, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}
