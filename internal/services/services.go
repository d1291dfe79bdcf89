package services

import (
	"log/slog"
	"time"

	"github.com/baharkarakas/checkflow/internal/config"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/baharkarakas/checkflow/internal/worker"
)

// Set is every service wired over one backend.
type Set struct {
	Resolver *CounterpartyResolver
	Balances *BalanceService
	Checks   *CheckService
	Audit    *AuditService
	Commands *CommandService
	Parties  *PartyService
}

// NewSet wires the services. clock may be nil.
func NewSet(repos repo.Repositories, cfg config.Config, wp *worker.Pool, log *slog.Logger, clock func() time.Time) *Set {
	resolver := NewCounterpartyResolver(repos.Users, log)
	balances := NewBalanceService(repos.Users)
	checks := NewCheckService(repos.Checks, resolver, balances, CheckOptions{
		RevocationWindow:    cfg.Checks.RevocationWindow,
		DefaultMaturityDays: cfg.Checks.DefaultMaturityDays,
		Clock:               clock,
		Logger:              log,
	})
	audit := NewAuditService(repos.AuditLogs, wp, log)
	return &Set{
		Resolver: resolver,
		Balances: balances,
		Checks:   checks,
		Audit:    audit,
		Commands: NewCommandService(checks, audit, log),
		Parties:  NewPartyService(repos.Users, repos.Credentials, cfg.Checks.DefaultUserBalance, log),
	}
}
