package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"

	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
	"github.com/mmynk/ledger/internal/storage/sqlite"
)

type migrateCmd struct {
	dbPath string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-db <path>]

  Brings the database schema up to date and prints the applied version.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", c.dbPath, "Path to the SQLite database (defaults to DB_PATH).")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := sqlite.RunMigrations(c.dbPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	v, dirty, err := sqlite.MigrationVersion(c.dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("schema version %d (dirty: %t)\n", v, dirty)
	return subcommands.ExitSuccess
}

type verifyCmd struct {
	dbPath  string
	profile string
}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check every expense against the split invariants" }
func (*verifyCmd) Usage() string {
	return `ledgerctl verify [-db <path>] [-profile full|lite]

  Audits all committed expenses, live and deleted, and lists any whose splits
  do not add up. Exits non-zero when a violation is found.
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", c.dbPath, "Path to the SQLite database (defaults to DB_PATH).")
	f.StringVar(&c.profile, "profile", c.profile, "Schema profile to open the database with.")
}

func (c *verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	profile, ok := storage.ProfileByName(c.profile)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown profile %q\n", c.profile)
		return subcommands.ExitUsageError
	}
	store, err := sqlite.New(c.dbPath, profile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	violations, err := store.AuditSplits(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if printViolations(os.Stdout, violations) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printViolations writes one line per violation and returns how many there were.
func printViolations(w io.Writer, violations []models.SplitViolation) int {
	if len(violations) == 0 {
		fmt.Fprintln(w, "all expenses balance")
		return 0
	}
	for _, v := range violations {
		fmt.Fprintf(w, "%s (couple %s): %s, amount %s, shares %s\n",
			v.ExpenseID, v.CoupleID, v.Reason,
			formatCents(v.AmountCents, v.Currency), formatCents(v.ShareCents, v.Currency))
	}
	fmt.Fprintf(w, "%d expense(s) out of balance\n", len(violations))
	return len(violations)
}

func formatCents(cents int64, currency string) string {
	if money.GetCurrency(currency) == nil {
		currency = models.DefaultCurrency
	}
	return money.New(cents, currency).Display()
}

type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "print the ledgerctl version" }
func (*versionCmd) Usage() string          { return "ledgerctl version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}
func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Println(version)
	return subcommands.ExitSuccess
}
