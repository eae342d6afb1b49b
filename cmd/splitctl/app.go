package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/mmynk/splitit/internal/config"
	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/money"
	"github.com/mmynk/splitit/internal/storage/sqlite"
)

// register adds every splitctl subcommand to c.
func register(c *subcommands.Commander) {
	c.Register(&seedCmd{}, "data")
	c.Register(&exportCmd{}, "data")
	c.Register(&balancesCmd{}, "data")

	c.Register(&unsyncedCmd{}, "sync")
	c.Register(&syncCmd{}, "sync")
}

// As a short lived CLI it is fine to keep the shared flags global.
var cfg = config.Load()

func init() {
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	flag.StringVar(&cfg.Currency, "currency", cfg.Currency, "ISO 4217 currency used to format amounts")
}

// openLedger opens the configured store and a ledger over it. Callers close the store.
func openLedger() (*sqlite.SQLiteStore, *ledger.Service, error) {
	formatter, err := money.NewFormatter(cfg.Currency)
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return store, ledger.New(store, ledger.WithFormatter(formatter)), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
