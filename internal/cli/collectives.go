package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/service"
)

type createCollectiveCmd struct {
	app      *App
	name     string
	password string
	currency string
}

func (*createCollectiveCmd) Name() string     { return "create-collective" }
func (*createCollectiveCmd) Synopsis() string { return "create a password protected collective" }
func (*createCollectiveCmd) Usage() string {
	return `create-collective -name <name> -password <password> [-currency <code>]

  Creates a collective and prints its id, key and access token.
  - currency: ISO 4217 code used for every amount (default PAYSHARE_DEFAULT_CURRENCY).
`
}

func (c *createCollectiveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Display name (required)")
	f.StringVar(&c.password, "password", "", "Shared password (required)")
	f.StringVar(&c.currency, "currency", "", "Currency, 3-letter code")
}

func (c *createCollectiveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "name", "password"); err != nil {
			return err
		}
		col, err := svc.CreateCollective(ctx, c.name, c.password, c.currency)
		if err != nil {
			return err
		}
		printCollective(c.app, col)
		return nil
	})
}

type setPasswordCmd struct {
	app        *App
	collective string
	password   string
}

func (*setPasswordCmd) Name() string     { return "set-password" }
func (*setPasswordCmd) Synopsis() string { return "change a collective's password" }
func (*setPasswordCmd) Usage() string {
	return `set-password -collective <id> -password <password>

  Changes the password. A different password rotates the access token and
  revokes existing sessions; setting the current password again changes nothing.
`
}

func (c *setPasswordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
	f.StringVar(&c.password, "password", "", "New password (required)")
}

func (c *setPasswordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective", "password"); err != nil {
			return err
		}
		changed, err := svc.SetPassword(ctx, c.collective, c.password)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(c.app.out, "password unchanged")
			return nil
		}
		col, err := svc.GetCollective(ctx, c.collective)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "token %s\n", col.Token)
		return nil
	})
}

type checkPasswordCmd struct {
	app        *App
	collective string
	password   string
}

func (*checkPasswordCmd) Name() string     { return "check-password" }
func (*checkPasswordCmd) Synopsis() string { return "verify a collective's password" }
func (*checkPasswordCmd) Usage() string {
	return `check-password -collective <id> -password <password>

  Prints true or false.
`
}

func (c *checkPasswordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
	f.StringVar(&c.password, "password", "", "Password to check")
}

func (c *checkPasswordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective"); err != nil {
			return err
		}
		ok, err := svc.CheckPassword(ctx, c.collective, c.password)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, ok)
		return nil
	})
}

type loginCmd struct {
	app      *App
	key      string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "issue a session for a collective" }
func (*loginCmd) Usage() string {
	return `login -key <key> -password <password>

  Prints a session JWT. Requires PAYSHARE_JWT_SECRET.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "key", "", "Collective key (required)")
	f.StringVar(&c.password, "password", "", "Collective password (required)")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "key", "password"); err != nil {
			return err
		}
		session, err := svc.Login(ctx, c.key, c.password)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, session)
		return nil
	})
}

type whoamiCmd struct {
	app     *App
	session string
	token   string
}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "resolve a session or access token" }
func (*whoamiCmd) Usage() string {
	return `whoami (-session <jwt> | -token <token>)

  Prints the collective the credential belongs to.
`
}

func (c *whoamiCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.session, "session", "", "Session JWT from login")
	f.StringVar(&c.token, "token", "", "Collective access token")
}

func (c *whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		var col *models.Collective
		var err error
		switch {
		case c.session != "":
			col, err = svc.Authenticate(ctx, c.session)
		case c.token != "":
			col, err = svc.CollectiveByToken(ctx, c.token)
		default:
			return fmt.Errorf("%w: -session or -token", errUsage)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "collective %s %q\n", col.ID, col.Name)
		return nil
	})
}

func printCollective(a *App, c *models.Collective) {
	fmt.Fprintf(a.out, "collective %s\n", c.ID)
	fmt.Fprintf(a.out, "key        %s\n", c.Key)
	fmt.Fprintf(a.out, "token      %s\n", c.Token)
	fmt.Fprintf(a.out, "currency   %s (%s)\n", c.Currency, c.CurrencySymbol())
}
