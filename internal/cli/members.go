package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mmynk/payshare/internal/service"
)

type createUserCmd struct {
	app      *App
	username string
}

func (*createUserCmd) Name() string     { return "create-user" }
func (*createUserCmd) Synopsis() string { return "provision an active user" }
func (*createUserCmd) Usage() string {
	return `create-user -username <name>

  Creates an active user and prints its id.
`
}

func (c *createUserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "Unique user name (required)")
}

func (c *createUserCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "username"); err != nil {
			return err
		}
		u, err := svc.CreateUser(ctx, c.username)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "user %s\n", u.ID)
		return nil
	})
}

type addMemberCmd struct {
	app        *App
	collective string
	user       string
}

func (*addMemberCmd) Name() string     { return "add-member" }
func (*addMemberCmd) Synopsis() string { return "add a user to a collective" }
func (*addMemberCmd) Usage() string {
	return `add-member -collective <id> -user <id>

  Adds the user to the collective. Adding an existing member does nothing.
`
}

func (c *addMemberCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
	f.StringVar(&c.user, "user", "", "User id (required)")
}

func (c *addMemberCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective", "user"); err != nil {
			return err
		}
		added, err := svc.AddMember(ctx, c.collective, c.user)
		if err != nil {
			return err
		}
		if added {
			fmt.Fprintln(c.app.out, "member added")
		} else {
			fmt.Fprintln(c.app.out, "already a member")
		}
		return nil
	})
}

type isMemberCmd struct {
	app        *App
	collective string
	user       string
}

func (*isMemberCmd) Name() string     { return "is-member" }
func (*isMemberCmd) Synopsis() string { return "check whether a user belongs to a collective" }
func (*isMemberCmd) Usage() string {
	return `is-member -collective <id> -user <id>

  Prints true or false.
`
}

func (c *isMemberCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collective, "collective", "", "Collective id (required)")
	f.StringVar(&c.user, "user", "", "User id (required)")
}

func (c *isMemberCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(svc *service.LedgerService) error {
		if err := require(f, "collective", "user"); err != nil {
			return err
		}
		ok, err := svc.IsMember(ctx, c.collective, c.user)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, ok)
		return nil
	})
}
