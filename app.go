package ciddispatch

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aigendrug/cid-dispatch/store"
	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
)

// Coordinator represents the experiment dispatch coordinator.
type Coordinator interface {
	Run(ctx context.Context) error
}

// Config configures an application.
type Config struct {
	Coordinator Coordinator
	Store       store.Store
	Logger      log.Logger
	Statter     stats.Statter
}

// Application represents the application. It owns the response
// reconciler loop: started once here, stopped once on Close.
type Application struct {
	coord Coordinator
	store store.Store

	cancel context.CancelFunc
	doneCh chan struct{}

	logger  log.Logger
	statter stats.Statter
}

// NewApplication creates an instance of Application, starting the
// reconciler and the periodic status summary.
func NewApplication(cfg Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		coord:   cfg.Coordinator,
		store:   cfg.Store,
		cancel:  cancel,
		doneCh:  make(chan struct{}),
		logger:  cfg.Logger,
		statter: cfg.Statter,
	}

	go app.runReconciler(ctx)
	go app.printStatuses(ctx)

	return app
}

func (a *Application) runReconciler(ctx context.Context) {
	defer close(a.doneCh)

	if err := a.coord.Run(ctx); err != nil {
		a.logger.Error("Reconciler stopped", "error", err)
	}
}

func (a *Application) printStatuses(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			exps, err := a.store.Experiments(ctx)
			if err != nil {
				a.logger.Error("Error getting experiments", "error", err)
				continue
			}

			counts := map[store.Status]int{}
			for _, exp := range exps {
				counts[exp.Status]++
			}

			tw := tabwriter.NewWriter(os.Stdout, 10, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "")
			fmt.Fprintf(tw, "%s\t%s\n", "Status", "Experiments")
			for _, s := range []store.Status{store.StatusCreated, store.StatusDispatched, store.StatusCompleted, store.StatusFailed} {
				fmt.Fprintf(tw, "%s\t%d\n", s, counts[s])
			}
			fmt.Fprintln(tw, "")
			tw.Flush()
		}
	}
}

// Close closes the application, stopping the reconciler loop and
// waiting for it to drain.
func (a *Application) Close() error {
	a.cancel()
	<-a.doneCh
	return nil
}
