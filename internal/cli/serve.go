package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/adapters/rest"
	"github.com/ewilliams-labs/song-bot/internal/core/services"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(true); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger := opts.cfg, opts.logger
	m := metrics.New()

	repo, err := opts.openRepo()
	if err != nil {
		return err
	}
	defer repo.Close()

	client, err := opts.newSpotify(ctx, m)
	if err != nil {
		return err
	}

	st, err := buildStack(ctx, cfg, logger, m, client, repo)
	if err != nil {
		return err
	}

	handler := rest.NewHandler(st.assistant,
		rest.WithPreferences(st.prefs),
		rest.WithMetricsHandler(m.Handler()),
		rest.WithLogger(logger.Named("rest")),
	)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go pruneSessions(ctx, st.assistant, cfg.Dialogue.SessionTTL, logger)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()
	logger.Info("cli: song-bot API is running", zap.String("addr", cfg.Server.ListenAddr))

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("cli: shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("cli: shutdown error", zap.Error(err))
		}
		return nil
	}
}

// pruneSessions drops idle sessions every ttl/2 until ctx is done.
func pruneSessions(ctx context.Context, a *services.Assistant, ttl time.Duration, logger *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Prune(ttl); n > 0 {
				logger.Debug("cli: pruned idle sessions", zap.Int("count", n), zap.Int("remaining", a.Len()))
			}
		}
	}
}
