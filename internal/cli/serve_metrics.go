package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type serveMetricsCmd struct {
	app  *App
	addr string
}

func (*serveMetricsCmd) Name() string     { return "serve-metrics" }
func (*serveMetricsCmd) Synopsis() string { return "expose Prometheus metrics over HTTP" }
func (*serveMetricsCmd) Usage() string {
	return `serve-metrics [-addr <host:port>]

  Serves /metrics until interrupted (default PAYSHARE_METRICS_ADDR). Ledger
  counters only cover this process; other commands push theirs to
  PAYSHARE_PUSHGATEWAY_URL when it is set.
`
}

func (c *serveMetricsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address")
}

func (c *serveMetricsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	addr := c.addr
	if addr == "" {
		addr = c.app.cfg.Metrics.Addr
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.app.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	c.app.logger.Info("Metrics server starting", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(c.app.out, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	c.app.logger.Info("Metrics server stopped")
	return subcommands.ExitSuccess
}

// MetricsHandler serves the App's runtime and ledger metrics in the Prometheus
// exposition format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{a.runtime, a.ledger}, promhttp.HandlerOpts{Registry: a.runtime})
}
