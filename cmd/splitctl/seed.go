package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/seed"
)

type seedCmd struct{}

func (*seedCmd) Name() string { return "seed" }
func (*seedCmd) Synopsis() string { return "creates the demo accounts in an empty database" }
func (*seedCmd) Usage() string {
	return `splitctl seed

  Creates six demo users and their friend edges. Every demo account uses the
  password "password123". Does nothing when the database already has users.
`
}

func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (*seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, svc, err := openLedger()
	if err != nil {
		return fail("could not open database: %v", err)
	}
	defer store.Close()

	created, err := seed.Seed(ctx, store, auth.NewPasswordAuthenticator(store), svc, slog.Default())
	if err != nil {
		return fail("%v", err)
	}
	if !created {
		fmt.Println("Database already has users, nothing seeded.")
		return subcommands.ExitSuccess
	}
	fmt.Printf("Seeded %d demo users into %s\n", len(seed.Users), cfg.DBPath)
	return subcommands.ExitSuccess
}
