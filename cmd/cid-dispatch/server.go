package main

import (
	"context"
	"net/http"
	"time"

	"github.com/hamba/cmd"
	"gopkg.in/urfave/cli.v2"
)

func runServer(c *cli.Context) error {
	ctx, err := cmd.NewContext(c)
	if err != nil {
		return err
	}

	st, closeStore, err := newStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	ch, err := newChannel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	coord, err := newCoordinator(ctx, st, ch)
	if err != nil {
		return err
	}

	app := newApplication(ctx, coord, st)
	defer app.Close()

	srv := &http.Server{
		Addr:    ctx.String(flagHTTPAddr),
		Handler: newRouter(ctx, coord, st),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ctx.Logger().Error("Error serving HTTP", "error", err)
		}
	}()

	<-cmd.WaitForSignals()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
