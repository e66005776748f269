package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-quoteforms/internal/config"
	"github.com/goliatone/go-quoteforms/internal/quotes"
	"github.com/goliatone/go-quoteforms/internal/web"
	"github.com/goliatone/go-quoteforms/pkg/forms"
	htmlrenderer "github.com/goliatone/go-quoteforms/pkg/renderers/html"
	"github.com/goliatone/go-quoteforms/pkg/submit"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the quote wizards and the quote API",
		Long: `Serve the browser wizards under /quote/{form} and the quote request API
under /api. Submissions go to backend.url, or to this server when unset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) openStore(ctx context.Context) (quotes.Store, error) {
	switch a.cfg.Store.Driver {
	case config.StoreSQLite:
		return quotes.OpenSQLite(ctx, a.cfg.Store.DSN)
	default:
		return quotes.NewMemoryStore(), nil
	}
}

func (a *app) serve(ctx context.Context) error {
	log := a.logger
	registry, err := a.registry()
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier := quotes.NewNotifier(log)
	notifier.Register(quotes.LogObserver{Logger: log})
	service, err := quotes.NewService(registry,
		quotes.WithStore(store),
		quotes.WithLogger(log),
		quotes.WithNotifier(notifier),
	)
	if err != nil {
		return err
	}

	renderer, err := htmlrenderer.New()
	if err != nil {
		return err
	}
	client := submit.NewClient(a.cfg.BackendURL(),
		submit.WithHTTPClient(&http.Client{Timeout: a.cfg.Backend.Timeout.Std()}),
		submit.WithLogger(log),
	)
	sessions := web.NewSessions(a.cfg.Server.SessionTTL.Std())
	handler, err := web.New(registry, renderer, client,
		web.WithLogger(log),
		web.WithSessions(sessions),
		web.WithSecureCookies(a.cfg.Server.SecureCookies),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(quotes.RequestLogger(log))
	quotes.Mount(r, service, quotes.WithStates(a.states), quotes.WithOpenAPIServer(a.cfg.BackendURL()))
	handler.Mount(r)

	go sessions.Run(ctx, time.Minute)
	if a.cfg.Forms.Watch {
		watcher := forms.NewWatcher(registry, a.cfg.Forms.Dir, forms.WithWatchLogger(log))
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error("form watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Int("forms", registry.Len()),
			zap.String("store", a.cfg.Store.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	return nil
}
