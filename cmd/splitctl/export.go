package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string { return "export" }
func (*exportCmd) Synopsis() string { return "writes every record as JSON" }
func (*exportCmd) Usage() string {
	return `splitctl export [-o <file>]

  Writes a snapshot of all expenses, groups and users to stdout or a file.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file. Defaults to stdout.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, svc, err := openLedger()
	if err != nil {
		return fail("could not open database: %v", err)
	}
	defer store.Close()

	snapshot, err := svc.ExportAll(ctx)
	if err != nil {
		return fail("export failed: %v", err)
	}

	out := os.Stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return fail("could not create %q: %v", c.output, err)
		}
		defer f.Close()
		out = f
	}
	if err := writeJSON(out, snapshot); err != nil {
		return fail("could not write snapshot: %v", err)
	}
	return subcommands.ExitSuccess
}
