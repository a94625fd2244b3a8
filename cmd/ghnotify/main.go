// Command ghnotify polls GitHub notifications, raises the important ones
// and keeps an unread badge. It runs as a terminal inbox or, with
// --headless, as a background daemon that logs instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cli/go-gh/v2/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/app"
	"github.com/nhle/ghnotify/internal/classify"
	"github.com/nhle/ghnotify/internal/credential"
	"github.com/nhle/ghnotify/internal/emit"
	"github.com/nhle/ghnotify/internal/logger"
	"github.com/nhle/ghnotify/internal/metrics"
	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/source/github"
	"github.com/nhle/ghnotify/internal/store"
	appsync "github.com/nhle/ghnotify/internal/sync"
	"github.com/nhle/ghnotify/internal/ui/toast"
)

type options struct {
	ConfigPath  string
	Headless    bool
	Token       string
	Logout      bool
	ResetSeen   bool
	MetricsAddr string
	LogFile     string
}

func parseOptions() options {
	var opts options
	flag.StringVarP(&opts.ConfigPath, "config", "c", model.DefaultConfigPath(), "path to the config file")
	flag.BoolVar(&opts.Headless, "headless", false, "run without the terminal inbox and log notifications instead")
	flag.StringVar(&opts.Token, "login", "", "store a GitHub token and exit")
	flag.BoolVar(&opts.Logout, "logout", false, "forget the stored GitHub token and exit")
	flag.BoolVar(&opts.ResetSeen, "reset-seen", false, "clear the seen set so every unread important thread is raised again")
	flag.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (headless only)")
	flag.StringVar(&opts.LogFile, "log-file", "", "log file for the terminal inbox (default: next to the state file)")
	flag.Parse()
	return opts
}

func main() {
	if err := run(parseOptions()); err != nil {
		fmt.Fprintln(os.Stderr, "ghnotify:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := model.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	// The inbox owns the terminal, so logs go to a file.
	if !opts.Headless {
		logFile := opts.LogFile
		if logFile == "" {
			logFile = filepath.Join(filepath.Dir(cfg.State.Path), "ghnotify.log")
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		logger.InitLogger(logger.Options{OutputPaths: []string{logFile}})
	} else {
		logger.InitLogger()
	}
	defer logger.Close()
	log := logger.GetLogger()

	if err := os.MkdirAll(filepath.Dir(cfg.State.Path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	state, err := store.NewSQLiteStore(cfg.State.Path)
	if err != nil {
		return err
	}
	defer state.Close()

	var credStore credential.Store
	ring, err := credential.NewKeyring(credential.DefaultDir())
	if err != nil {
		log.Warnw("keyring unavailable, token will not persist", "error", err)
		credStore = credential.NewMemory()
	} else {
		credStore = ring
	}
	creds := credential.NewTokenSource(credStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.Token != "":
		if err := creds.Save(strings.TrimSpace(opts.Token)); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		fmt.Println("Token saved.")
		return nil
	case opts.Logout:
		if err := creds.Forget(); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}
		if err := state.ClearProfile(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	case opts.ResetSeen:
		if err := state.ResetSeenSet(ctx); err != nil {
			return err
		}
		fmt.Println("Seen set cleared.")
		return nil
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sources := github.NewFactory(github.Options{
		Host:     cfg.GitHub.Host,
		BaseURL:  cfg.GitHub.APIURL,
		Timeout:  time.Duration(cfg.GitHub.TimeoutSec) * time.Second,
		PageSize: cfg.GitHub.PageSize,
	})
	reasons := classify.NewReasonSet(cfg.Notify.ImportantReasons...)

	var (
		displayer emit.Displayer
		badge     emit.Badge
		center    *toast.Center
	)
	if opts.Headless {
		displayer = emit.NewLogDisplayer(logger.Named("notify"))
		badge = emit.NewLogBadge(logger.Named("badge"))
	} else {
		center = toast.NewCenter()
		displayer, badge = center, center
	}
	emitter := emit.New(displayer, badge,
		emit.WithLogger(logger.Named("emitter")),
		emit.WithMetrics(m),
	)

	poller := appsync.New(appsync.Config{
		Interval: cfg.PollInterval(),
		Reasons:  reasons,
	}, appsync.Deps{
		Sources:     sources,
		Credentials: creds,
		Seen:        state,
		Profiles:    state,
		Emitter:     emitter,
		Metrics:     m,
		Logger:      logger.Named("poller"),
	})

	if opts.Headless {
		return runHeadless(ctx, poller, reg, opts.MetricsAddr)
	}

	poller.Start(ctx)
	defer poller.Stop()

	root := app.New(ctx, app.Deps{
		Poller:      poller,
		Toasts:      center,
		Sources:     sources,
		Seen:        state,
		Credentials: creds,
		Reasons:     reasons,
		Browser:     browser.New("", io.Discard, io.Discard),
		Logger:      logger.Named("inbox"),
		Config:      cfg,
		ConfigPath:  opts.ConfigPath,
	})

	prog := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running inbox: %w", err)
	}
	return nil
}

// runHeadless polls until ctx ends, logging each cycle.
func runHeadless(ctx context.Context, poller *appsync.Poller, reg *prometheus.Registry, metricsAddr string) error {
	log := logger.Named("daemon")

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	poller.Start(ctx)
	defer poller.Stop()
	log.Info("polling started")

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case res := <-poller.Results():
			if res.Err != nil {
				log.Warn("cycle failed", zap.String("outcome", res.Outcome), zap.Error(res.Err))
				continue
			}
			log.Info("cycle complete",
				zap.Int("threads", len(res.Threads)),
				zap.Int("important", len(res.Important)),
				zap.Int("new", len(res.NewlyImportant)),
				zap.String("badge", res.BadgeText),
			)
		}
	}
}
