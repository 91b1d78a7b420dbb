// Package cli implements the payshare operator commands.
//
// A main package builds an App from the environment, registers App.Commands
// on a subcommands.Commander and executes the user-selected one.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/mmynk/payshare/internal/auth"
	"github.com/mmynk/payshare/internal/config"
	"github.com/mmynk/payshare/internal/metrics"
	"github.com/mmynk/payshare/internal/service"
	"github.com/mmynk/payshare/internal/storage/sqlstore"
)

// App carries what every command needs. A CLI process is short lived, so the
// store is opened per command and the ledger counters are pushed to a
// Pushgateway when one is configured.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	runtime *prometheus.Registry
	ledger  *prometheus.Registry
	metrics *metrics.Metrics
}

// NewApp creates an App writing command output to out.
func NewApp(cfg *config.Config, logger *slog.Logger, out io.Writer) *App {
	runtime := prometheus.NewRegistry()
	runtime.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledger := prometheus.NewRegistry()
	return &App{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		runtime: runtime,
		ledger:  ledger,
		metrics: metrics.New(ledger),
	}
}

// Commands returns the commands with their group names.
func (a *App) Commands() map[subcommands.Command]string {
	return map[subcommands.Command]string{
		&createUserCmd{app: a}:       "members",
		&addMemberCmd{app: a}:        "members",
		&isMemberCmd{app: a}:         "members",
		&createCollectiveCmd{app: a}: "collectives",
		&setPasswordCmd{app: a}:      "collectives",
		&checkPasswordCmd{app: a}:    "collectives",
		&loginCmd{app: a}:            "collectives",
		&whoamiCmd{app: a}:           "collectives",
		&addPurchaseCmd{app: a}:      "ledger",
		&addLiquidationCmd{app: a}:   "ledger",
		&deleteCmd{app: a}:           "ledger",
		&entriesCmd{app: a}:          "ledger",
		&statsCmd{app: a}:            "balances",
		&settleCmd{app: a}:           "balances",
		&serveMetricsCmd{app: a}:     "operations",
	}
}

// Register adds every command to c.
func (a *App) Register(c *subcommands.Commander) {
	for cmd, group := range a.Commands() {
		c.Register(cmd, group)
	}
}

// run opens the ledger, runs fn and maps its error to an exit status.
func (a *App) run(ctx context.Context, fn func(svc *service.LedgerService) error) subcommands.ExitStatus {
	store, err := sqlstore.Open(ctx, a.cfg.DB.Driver, a.cfg.DB.DSN)
	if err != nil {
		fmt.Fprintf(a.out, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	opts := []service.Option{
		service.WithLogger(a.logger),
		service.WithMetrics(a.metrics),
		service.WithDefaultCurrency(a.cfg.Ledger.DefaultCurrency),
	}
	if a.cfg.Auth.JWTSecret != "" {
		opts = append(opts, service.WithSessions(auth.NewJWTManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.SessionTTL)))
	}
	svc := service.NewLedgerService(store, auth.NewBcryptHasher(a.cfg.Auth.BcryptCost), opts...)
	defer a.pushMetrics()

	if err := fn(svc); err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// pushMetrics sends the ledger counters to the configured Pushgateway. A
// failed push is logged and does not fail the command.
func (a *App) pushMetrics() {
	url := a.cfg.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	job := a.cfg.Metrics.PushJob
	if job == "" {
		job = "payshare"
	}
	if err := push.New(url, job).Gatherer(a.ledger).Add(); err != nil {
		a.logger.Warn("Failed to push metrics", "url", url, "error", err)
		return
	}
	a.logger.Debug("Metrics pushed", "url", url, "job", job)
}

var errUsage = errors.New("missing required flag")

// require fails with errUsage naming the first empty flag.
func require(f *flag.FlagSet, names ...string) error {
	for _, name := range names {
		fl := f.Lookup(name)
		if fl == nil || fl.Value.String() == "" {
			return fmt.Errorf("%w: -%s", errUsage, name)
		}
	}
	return nil
}
