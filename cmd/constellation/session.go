package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"constellation/internal/config"
	"constellation/internal/kvstore"
	"constellation/internal/metrics"
	"constellation/internal/notify"
	"constellation/internal/workspace"
)

// session is the state shared by every command of one invocation, or of a
// whole repl run.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	kv      kvstore.Store
	reg     *prometheus.Registry
	ws      *workspace.Manager
	started time.Time
}

var sess *session

func ensureSession(cmd *cobra.Command, args []string) error {
	if sess != nil || cmd.Annotations["session"] == "none" {
		return nil
	}
	s, err := openSession(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sess = s
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagBackend != "" {
		cfg.Backend = flagBackend
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagMetrics != "" {
		cfg.MetricsFile = flagMetrics
	}
	return cfg, cfg.Validate()
}

func openSession(stdin io.Reader, stderr io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(stderr)
	if cfg.Backend != "memory" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}

	kv, err := kvstore.Open(cfg.Backend, cfg.StorePath(), cfg.CompressThreshold, logger.With("component", "kvstore"))
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Backend, err)
	}

	reg := prometheus.NewRegistry()
	ws, err := workspace.Open(workspace.Options{
		Config:    cfg,
		KV:        kv,
		Toaster:   &cliToaster{w: stderr},
		Confirmer: &promptConfirmer{in: stdin, out: stderr, yes: func() bool { return assumeYes }},
		Logger:    logger,
		Metrics:   metrics.New(reg),
	})
	if err != nil {
		kvstore.Close(kv)
		return nil, err
	}
	logger.Debug("session opened", "backend", cfg.Backend, "path", cfg.StorePath())
	return &session{cfg: cfg, logger: logger, kv: kv, reg: reg, ws: ws, started: time.Now()}, nil
}

func closeSession() error {
	if sess == nil {
		return nil
	}
	s := sess
	sess = nil

	err := s.ws.Close()
	if cerr := kvstore.Close(s.kv); cerr != nil && err == nil {
		err = cerr
	}
	if s.cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(s.cfg.MetricsFile, s.reg); merr != nil {
			s.logger.Warn("writing metrics file", "path", s.cfg.MetricsFile, "err", merr)
		}
	}
	s.logger.Debug("session closed", "elapsed", time.Since(s.started))
	return err
}

// cliToaster prints warnings and errors. Other toasts only echo what the
// command prints itself.
type cliToaster struct {
	w io.Writer
}

func (t *cliToaster) Toast(message string, severity notify.Severity, _ time.Duration) {
	switch severity {
	case notify.Warning, notify.Error:
		fmt.Fprintf(t.w, "%s: %s\n", severity, message)
	}
}

// promptConfirmer asks on the terminal. Without a terminal it refuses
// unless --yes was given.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
	yes func() bool
}

func (c *promptConfirmer) Confirm(ctx context.Context, opts notify.ConfirmOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if c.yes != nil && c.yes() {
		return true, nil
	}
	if f, ok := c.in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(c.out, "%s: %s (re-run with --yes to confirm)\n", opts.Title, opts.Message)
		return false, nil
	}
	fmt.Fprintf(c.out, "%s\n%s [y/N]: ", opts.Title, opts.Message)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
