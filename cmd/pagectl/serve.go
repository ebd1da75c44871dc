package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-pages/components/pages"
	"github.com/goliatone/go-pages/components/pages/httpapi"
)

type serveCmd struct {
	Addr      string `default:":9876" help:"Listen address."`
	BasePath  string `name:"base-path" default:"/admin/pages" help:"Mount point of the admin API."`
	MaxUpload int64  `name:"max-upload" default:"12582912" help:"Largest accepted multipart body in bytes."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *cli) error {
	logger := g.logger()
	broadcast := pages.NewBroadcastHook()
	svc, err := g.service(logger, broadcast)
	if err != nil {
		return err
	}
	handlers := httpapi.NewHandlers(svc, pages.NewSlogTelemetry(logger))
	handlers.MaxUploadBytes = cmd.MaxUpload

	mux := http.NewServeMux()
	handlers.Register(mux, httpapi.RouteConfig{BasePath: cmd.BasePath}, broadcast)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	// Request contexts end with ctx, which also closes open event streams.
	server := &http.Server{
		Addr:              cmd.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	group.Go(func() error {
		logger.Info("pages admin listening", "addr", cmd.Addr, "base_path", cmd.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("pagectl: serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
