package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/stream"
	"github.com/san-kum/erosim/internal/tui"
)

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	land, err := newTerrain(cfg)
	if err != nil {
		return err
	}
	// GPU runs from the live view happen on a worker goroutine, so they
	// use the reference device rather than a thread-bound GL context.
	s, err := newSession(cfg, land, false)
	if err != nil {
		return err
	}
	defer s.Close()

	preview := tui.NewPreview(land, 64, 24)
	s.engine.SetConsumer(preview)
	return tui.Run(asyncStart{s.engine}, preview, s.backend)
}

// asyncStart makes GPU starts non-blocking for interactive front ends.
type asyncStart struct {
	*erosion.Engine
}

func (a asyncStart) Start(b erosion.Backend) error {
	if b == erosion.CPU {
		return a.Engine.Start(b)
	}
	go a.Engine.Start(b)
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	land, err := newTerrain(cfg)
	if err != nil {
		return err
	}
	s, err := newSession(cfg, land, false)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := stream.NewServer(land, s.engine)
	s.engine.SetConsumer(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go srv.Run(ctx)

	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		s.engine.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	srv.Regenerate(true)
	if autostart {
		go func() {
			if err := s.engine.Start(s.backend); err != nil {
				erosion.Logger().Warn("autostart failed", "err", err)
			}
		}()
	}

	fmt.Printf("serving %dx%d terrain on http://%s (websocket at /ws)\n", land.Width(), land.Width(), addr)
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
