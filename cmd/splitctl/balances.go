package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mmynk/splitit/internal/models"
)

type balancesCmd struct {
	user string
}

func (*balancesCmd) Name() string { return "balances" }
func (*balancesCmd) Synopsis() string { return "prints a user's balance with each counterparty" }
func (*balancesCmd) Usage() string {
	return `splitctl balances -u <handle>

  Prints what the user owes or is owed overall and per counterparty.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "u", "", "Handle of the user")
}

func (c *balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		return fail("-u is required")
	}
	store, svc, err := openLedger()
	if err != nil {
		return fail("could not open database: %v", err)
	}
	defer store.Close()

	user, err := store.GetUserByName(ctx, c.user)
	if err != nil {
		return fail("%v", err)
	}
	dash, err := svc.Dashboard(ctx, &models.Session{UserID: user.ID, Name: user.Name}, 0)
	if err != nil {
		return fail("%v", err)
	}

	fmt.Printf("%s: %s\n", user.Label(), dash.Summary)
	for _, b := range dash.Balances {
		fmt.Printf("  %-24s %s\n", b.Name, b.Summary)
	}
	return subcommands.ExitSuccess
}
