package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	appfx "github.com/shakilmiahcse/social-org-finance/internal/fx"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/google/subcommands"
	"go.uber.org/fx"
)

var commands = []subcommands.Command{
	&migrateCmd{},
	&balanceCmd{},
	&summaryCmd{},
	&setMainFundCmd{},
}

// ledger holds the services a command needs, built from the same modules as
// the API service.
type ledger struct {
	Funds    *fund.Service
	Balances *balance.Service
}

func openLedger(ctx context.Context) (*ledger, func(), error) {
	var l ledger
	app := fx.New(
		appfx.ConfigModule,
		appfx.TelemetryModule,
		appfx.InfrastructureModule,
		appfx.DomainModule,
		fx.NopLogger,
		fx.Populate(&l.Funds, &l.Balances),
	)
	if err := app.Err(); err != nil {
		return nil, nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, nil, err
	}
	stop := func() {
		_ = app.Stop(context.Background())
	}
	return &l, stop, nil
}

// scopeFlags are shared by every command that acts on one organization.
type scopeFlags struct {
	org   string
	actor string
}

func (s *scopeFlags) register(f *flag.FlagSet) {
	f.StringVar(&s.org, "org", "", "Organization ULID (required).")
	f.StringVar(&s.actor, "actor", "", "Acting user ULID recorded on changes (required).")
}

func (s *scopeFlags) scope() (tenant.Scope, error) {
	if s.org == "" || s.actor == "" {
		return tenant.Scope{}, errors.New("-org and -actor are required")
	}
	orgID, err := pkg.ParseULID(s.org)
	if err != nil {
		return tenant.Scope{}, fmt.Errorf("invalid -org: %w", err)
	}
	actorID, err := pkg.ParseULID(s.actor)
	if err != nil {
		return tenant.Scope{}, fmt.Errorf("invalid -actor: %w", err)
	}
	return tenant.NewScope(orgID, actorID), nil
}
