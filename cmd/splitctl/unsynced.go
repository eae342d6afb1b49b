package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type unsyncedCmd struct{}

func (*unsyncedCmd) Name() string { return "unsynced" }
func (*unsyncedCmd) Synopsis() string { return "counts records waiting for the sync remote" }
func (*unsyncedCmd) Usage() string {
	return `splitctl unsynced
`
}

func (*unsyncedCmd) SetFlags(*flag.FlagSet) {}

func (*unsyncedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, svc, err := openLedger()
	if err != nil {
		return fail("could not open database: %v", err)
	}
	defer store.Close()

	counts, err := svc.UnsyncedCounts(ctx)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("expenses: %d\ngroups:   %d\n", counts.Expenses, counts.Groups)
	return subcommands.ExitSuccess
}
