package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/mmynk/payshare/internal/service"
)

type statsCmd struct {
	app        *App
	collective string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "show member balances" }
func (*statsCmd) Usage() string {
	return `stats -collective <id>

  Prints totals and every member's balance, highest first. A positive balance
  is owed to the member; a negative one is owed by the member.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective"); err != nil {
			return err
		}
		stats, err := svc.Stats(ctx, c.collective)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.app.out, "Overall purchased: %s\n", stats.OverallPurchased)
		fmt.Fprintf(c.app.out, "Overall debt:      %s\n\n", stats.OverallDebt)

		w := tabwriter.NewWriter(c.app.out, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "MEMBER\tPURCHASED\tPAID\tRECEIVED\tBALANCE\t")
		for _, b := range stats.SortedBalances {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", b.MemberID, b.Purchased, b.Paid, b.Received, b.Balance)
		}
		return w.Flush()
	})
}

type settleCmd struct {
	app        *App
	collective string
}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "suggest repayments that clear all balances" }
func (*settleCmd) Usage() string {
	return `settle -collective <id>

  Prints the liquidations that would bring every balance to zero.
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective"); err != nil {
			return err
		}
		plan, err := svc.SettlePlan(ctx, c.collective)
		if err != nil {
			return err
		}
		if len(plan) == 0 {
			fmt.Fprintln(c.app.out, "all settled")
			return nil
		}
		for _, t := range plan {
			fmt.Fprintf(c.app.out, "%s pays %s to %s\n", t.DebtorID, t.Amount, t.CreditorID)
		}
		return nil
	})
}
