package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/infrastructure"
	appfx "github.com/shakilmiahcse/social-org-finance/internal/fx"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/google/subcommands"
)

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the ledger schema" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate

  Applies table definitions, indexes and constraints. Safe to run repeatedly.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	appfx.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		return fail(err)
	}
	logger.Init(cfg)

	db, err := infrastructure.NewDb(cfg)
	if err != nil {
		return fail(err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := infrastructure.RunMigrations(db); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type balanceCmd struct {
	scopeFlags
	fund string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print fund balances of an organization" }
func (*balanceCmd) Usage() string {
	return `ledgerctl balance -org <ulid> -actor <ulid> [-fund <ulid>]

  Without -fund, prints every fund with its balance and the organization total.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.fund, "fund", "", "Only print this fund, with its credit and debit totals.")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	scope, err := c.scope()
	if err != nil {
		return fail(err)
	}
	l, stop, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer stop()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if c.fund != "" {
		fundID, err := pkg.ParseULID(c.fund)
		if err != nil {
			return fail(fmt.Errorf("invalid -fund: %w", err))
		}
		totals, err := l.Balances.GetFundTotals(ctx, scope, fundID)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(w, "credit\t%s\n", totals.Credit.StringFixed(pkg.AmountScale))
		fmt.Fprintf(w, "debit\t%s\n", totals.Debit.StringFixed(pkg.AmountScale))
		fmt.Fprintf(w, "balance\t%s\n", totals.Balance.StringFixed(pkg.AmountScale))
		fmt.Fprintf(w, "entries\t%d\n", totals.Count)
		return subcommands.ExitSuccess
	}

	balances, err := l.Balances.ListFundBalances(ctx, scope)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintln(w, "FUND\tTYPE\tSTATUS\tBALANCE")
	for _, b := range balances {
		status := "open"
		if !b.Fund.IsOpen() {
			status = "closed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Fund.Name, b.Fund.Type, status, b.Balance.StringFixed(pkg.AmountScale))
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	scopeFlags
	from               string
	to                 string
	fund               string
	excludeAdjustments bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print credit and debit totals by month" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary -org <ulid> -actor <ulid> [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-fund <ulid>] [-exclude-adjustments]

  Defaults to the last 7 days. Months are UTC calendar months.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.from, "from", "", "Start date (inclusive).")
	f.StringVar(&c.to, "to", "", "End date (inclusive).")
	f.StringVar(&c.fund, "fund", "", "Restrict to one fund.")
	f.BoolVar(&c.excludeAdjustments, "exclude-adjustments", false, "Leave out adjustment legs.")
}

func parseDay(value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return pkg.EndOfDay(day), nil
	}
	return day, nil
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	scope, err := c.scope()
	if err != nil {
		return fail(err)
	}
	query := balance.SummaryQuery{ExcludeAdjustments: c.excludeAdjustments}
	if query.From, err = parseDay(c.from, false); err != nil {
		return fail(fmt.Errorf("invalid -from: %w", err))
	}
	if query.To, err = parseDay(c.to, true); err != nil {
		return fail(fmt.Errorf("invalid -to: %w", err))
	}
	if query.FundId, err = pkg.ULIDPtrFromString(&c.fund); err != nil {
		return fail(fmt.Errorf("invalid -fund: %w", err))
	}

	l, stop, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer stop()

	summary, err := l.Balances.Summarize(ctx, scope, query)
	if err != nil {
		return fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "MONTH\tCREDIT\tDEBIT\tNET\tENTRIES")
	for _, b := range summary.Trend {
		fmt.Fprintf(w, "%04d-%02d\t%s\t%s\t%s\t%d\n", b.Year, b.Month,
			b.Credit.StringFixed(pkg.AmountScale), b.Debit.StringFixed(pkg.AmountScale), b.Net.StringFixed(pkg.AmountScale), b.Count)
	}
	fmt.Fprintf(w, "total\t%s\t%s\t%s\t%d\n",
		summary.TotalCredit.StringFixed(pkg.AmountScale), summary.TotalDebit.StringFixed(pkg.AmountScale),
		summary.NetBalance.StringFixed(pkg.AmountScale), summary.TransactionCount)
	return subcommands.ExitSuccess
}

type setMainFundCmd struct {
	scopeFlags
	fund string
}

func (*setMainFundCmd) Name() string     { return "set-main-fund" }
func (*setMainFundCmd) Synopsis() string { return "make a fund the organization's main fund" }
func (*setMainFundCmd) Usage() string {
	return `ledgerctl set-main-fund -org <ulid> -actor <ulid> -fund <ulid>

  Demotes the current main fund to campaign and promotes -fund in one unit of work.
`
}

func (c *setMainFundCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.fund, "fund", "", "Fund ULID to promote (required).")
}

func (c *setMainFundCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	scope, err := c.scope()
	if err != nil {
		return fail(err)
	}
	fundID, err := pkg.ParseULID(c.fund)
	if err != nil {
		return fail(fmt.Errorf("invalid -fund: %w", err))
	}

	l, stop, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer stop()

	promoted, err := l.Funds.SetMainFund(ctx, scope, fundID)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("main fund is now %s (%s)\n", promoted.Name, promoted.Id)
	return subcommands.ExitSuccess
}
