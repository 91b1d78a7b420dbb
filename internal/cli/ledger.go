package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/money"
	"github.com/mmynk/payshare/internal/service"
	"github.com/mmynk/payshare/internal/storage"
)

type addPurchaseCmd struct {
	app        *App
	collective string
	buyer      string
	name       string
	price      string
}

func (*addPurchaseCmd) Name() string     { return "add-purchase" }
func (*addPurchaseCmd) Synopsis() string { return "record a purchase paid by a member" }
func (*addPurchaseCmd) Usage() string {
	return `add-purchase -collective <id> -buyer <user id> -name <name> -price <amount>

  Records that the buyer paid for the whole collective. The price is an exact
  decimal in the collective's currency (e.g. 12.50).
`
}

func (c *addPurchaseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
	f.StringVar(&c.buyer, "buyer", "", "Buyer user id (required)")
	f.StringVar(&c.name, "name", "", "Short description (required)")
	f.StringVar(&c.price, "price", "", "Amount paid (required)")
}

func (c *addPurchaseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective", "buyer", "name", "price"); err != nil {
			return err
		}
		price, err := parseAmount(ctx, svc, c.collective, c.price)
		if err != nil {
			return err
		}
		p, err := svc.CreatePurchase(ctx, c.collective, c.buyer, c.name, price)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "purchase %s\n", p.ID)
		return nil
	})
}

type addLiquidationCmd struct {
	app        *App
	collective string
	debtor     string
	creditor   string
	name       string
	amount     string
}

func (*addLiquidationCmd) Name() string     { return "add-liquidation" }
func (*addLiquidationCmd) Synopsis() string { return "record a repayment between two members" }
func (*addLiquidationCmd) Usage() string {
	return `add-liquidation -collective <id> -debtor <user id> -creditor <user id> -name <name> -amount <amount>

  Records that the debtor paid the amount to the creditor.
`
}

func (c *addLiquidationCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
	f.StringVar(&c.debtor, "debtor", "", "User id of the member who pays (required)")
	f.StringVar(&c.creditor, "creditor", "", "User id of the member who receives (required)")
	f.StringVar(&c.name, "name", "", "Short description (required)")
	f.StringVar(&c.amount, "amount", "", "Amount paid back (required)")
}

func (c *addLiquidationCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective", "debtor", "creditor", "name", "amount"); err != nil {
			return err
		}
		amount, err := parseAmount(ctx, svc, c.collective, c.amount)
		if err != nil {
			return err
		}
		l, err := svc.CreateLiquidation(ctx, c.collective, c.debtor, c.creditor, c.name, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "liquidation %s\n", l.ID)
		return nil
	})
}

type deleteCmd struct {
	app *App
	id  string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "soft-delete a purchase or liquidation" }
func (*deleteCmd) Usage() string {
	return `delete -id <entry id>

  Marks the entry as deleted. It stays retrievable but no longer counts
  towards balances. Deleting twice is harmless.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Purchase or liquidation id (required)")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "id"); err != nil {
			return err
		}
		entry, changed, err := svc.SoftDelete(ctx, c.id)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(c.app.out, "%s %s deleted\n", entry.Kind, entry.ID())
		} else {
			fmt.Fprintf(c.app.out, "%s %s already deleted\n", entry.Kind, entry.ID())
		}
		return nil
	})
}

type entriesCmd struct {
	app        *App
	collective string
	filter     storage.EntryFilter
}

func (*entriesCmd) Name() string     { return "entries" }
func (*entriesCmd) Synopsis() string { return "list active purchases and liquidations" }
func (*entriesCmd) Usage() string {
	return `entries -collective <id> [-buyer <user id>] [-debtor <user id>] [-creditor <user id>] [-all]

  Lists the collective's active ledger entries, newest first. -buyer shows
  only that member's purchases; -debtor and -creditor show only liquidations.
`
}

func (c *entriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
	f.StringVar(&c.filter.BuyerID, "buyer", "", "Only purchases by this user")
	f.StringVar(&c.filter.DebtorID, "debtor", "", "Only liquidations paid by this user")
	f.StringVar(&c.filter.CreditorID, "creditor", "", "Only liquidations received by this user")
	f.BoolVar(&c.filter.IncludeDeleted, "all", false, "Include deleted entries")
}

func (c *entriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective"); err != nil {
			return err
		}
		entries, err := svc.ListEntries(ctx, c.collective, c.filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.app.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tKIND\tID\tNAME\tPARTIES\tAMOUNT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt().Format("2006-01-02 15:04"), e.Kind, e.ID(), e.Name(), parties(e), e.Amount())
		}
		return w.Flush()
	})
}

func parties(e models.Entry) string {
	if e.Kind == models.EntryPurchase {
		return e.Purchase.BuyerID
	}
	return e.Liquidation.DebtorID + " -> " + e.Liquidation.CreditorID
}

// parseAmount reads s in the collective's currency.
func parseAmount(ctx context.Context, svc *service.LedgerService, collectiveID, s string) (money.Money, error) {
	col, err := svc.GetCollective(ctx, collectiveID)
	if err != nil {
		return money.Money{}, err
	}
	return money.Parse(s, col.Currency)
}
