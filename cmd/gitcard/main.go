package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vukan322/gitcard/internal/card"
	"github.com/vukan322/gitcard/internal/config"
	"github.com/vukan322/gitcard/internal/core"
	"github.com/vukan322/gitcard/internal/export"
	"github.com/vukan322/gitcard/internal/logging"
	"github.com/vukan322/gitcard/internal/providers"
	"github.com/vukan322/gitcard/internal/providers/demo"
	githubprovider "github.com/vukan322/gitcard/internal/providers/github"
	"github.com/vukan322/gitcard/internal/render"
	"github.com/vukan322/gitcard/internal/server"
	"github.com/vukan322/gitcard/internal/share"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "gitcard: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := newProvider(cfg)
	exporter := export.NewExporter(render.NewRasterizer(provider, logger), export.Options{
		Scale:     cfg.Scale,
		FlipDelay: cfg.FlipDelay,
		Logger:    logger,
	})

	if cfg.Serve {
		err = serve(ctx, cfg, provider, exporter, logger)
	} else {
		err = generate(ctx, cfg, provider, exporter, logger)
	}
	if err != nil {
		logger.Error(ctx, "gitcard failed", "error", err)
		os.Exit(1)
	}
}

func newProvider(cfg *config.Config) providers.Provider {
	if cfg.Demo {
		return demo.New()
	}
	return githubprovider.New(githubprovider.Config{
		BaseURL:   cfg.APIBaseURL,
		UserAgent: cfg.UserAgent,
	}, &http.Client{Timeout: cfg.HTTPTimeout})
}

func serve(ctx context.Context, cfg *config.Config, provider providers.Provider, exporter *export.Exporter, logger logging.Logger) error {
	registry := server.NewRegistry(func() *card.Session {
		return card.NewSession(provider, provider, logger)
	}, cfg.SessionTTL, logger)
	go registry.Run(ctx, time.Minute)

	srv := server.New(registry, provider, exporter, server.Options{
		PublicURL: cfg.PublicURL,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", cfg.Addr, "provider", provider.Name(), "public_url", cfg.PublicURL)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	registry.CloseAll()
	return nil
}

// generate runs a single lookup and writes the exported card to OutDir.
func generate(ctx context.Context, cfg *config.Config, provider providers.Provider, exporter *export.Exporter, logger logging.Logger) error {
	session := card.NewSession(provider, provider, logger)
	defer session.Close()

	lookupCtx, cancel := context.WithTimeout(ctx, 2*cfg.HTTPTimeout)
	defer cancel()

	st, err := session.Lookup(lookupCtx, cfg.User)
	if err != nil {
		return fmt.Errorf("%s: %w", core.Message(err), err)
	}
	if st.RepositoryErr != nil {
		logger.Warn(ctx, "repositories unavailable, exporting without them", "login", st.Profile.Login, "error", st.RepositoryErr)
	}

	sink := export.FileSink{Dir: cfg.OutDir}
	art, err := exporter.ExportTo(ctx, session, sink)
	if err != nil {
		return fmt.Errorf("%s: %w", core.Message(err), err)
	}

	link, err := share.Link(cfg.PublicURL, st.Profile.Login, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("gitcard: wrote %s (%dx%d) via %s\n", sink.Path(art), art.Width, art.Height, provider.Name())
	fmt.Printf("gitcard: share %s\n", link)
	return nil
}
