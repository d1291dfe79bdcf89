package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/baharkarakas/checkflow/internal/config"
	"github.com/baharkarakas/checkflow/internal/db"
	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/baharkarakas/checkflow/internal/services"
)

const usage = `Drives the check lifecycle from the shell, one command per invocation.
The acting party is chosen with --as and resolved by name like any counterparty.`

func main() {
	var as string

	app := &cli.App{
		Name:  "checkctl",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "as",
				Aliases:     []string{"u"},
				Usage:       "act as party `NAME`",
				Required:    true,
				Destination: &as,
				EnvVars:     []string{"CHECKCTL_AS"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "issue",
				Usage:     "Issue a check to a counterparty.",
				ArgsUsage: "<payee> <amount>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "maturity", Aliases: []string{"m"}, Usage: "maturity `DATE`, e.g. 2026-12-31"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return errors.New("usage: issue <payee> <amount>")
					}
					amount, err := decimal.NewFromString(c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("amount: %w", err)
					}
					cmd := services.IssueCheck{Counterparty: c.Args().Get(0), Amount: &amount}
					if m := c.String("maturity"); m != "" {
						t, err := services.ParseMaturity(m)
						if err != nil {
							return err
						}
						cmd.Maturity = &t
					}
					return execute(c.Context, as, cmd)
				},
			},
			{
				Name:      "accept",
				Usage:     "Accept checks by id, by issuer, or all pending.",
				ArgsUsage: "[id...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "accept every pending check"},
					&cli.StringFlag{Name: "from", Usage: "accept the oldest check from issuer `NAME`"},
				},
				Action: func(c *cli.Context) error {
					ids, err := parseIDs(c.Args().Slice())
					if err != nil {
						return err
					}
					return execute(c.Context, as, services.AcceptCheck{CheckIDs: ids, IssuerName: c.String("from"), All: c.Bool("all")})
				},
			},
			{
				Name:      "deny",
				Usage:     "Deny checks by id or by issuer.",
				ArgsUsage: "[id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "deny the oldest check from issuer `NAME`"},
				},
				Action: func(c *cli.Context) error {
					ids, err := parseIDs(c.Args().Slice())
					if err != nil {
						return err
					}
					return execute(c.Context, as, services.DenyCheck{CheckIDs: ids, IssuerName: c.String("from")})
				},
			},
			{
				Name:      "forward",
				Usage:     "Forward an accepted check to another party.",
				ArgsUsage: "<id> <recipient>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return errors.New("usage: forward <id> <recipient>")
					}
					ids, err := parseIDs(c.Args().Slice()[:1])
					if err != nil {
						return err
					}
					return execute(c.Context, as, services.ForwardCheck{CheckID: ids[0], ToCounterparty: c.Args().Get(1)})
				},
			},
			{
				Name:      "revoke",
				Usage:     "Undo the last action on each check, depending on your role.",
				ArgsUsage: "<id...>",
				Action: func(c *cli.Context) error {
					ids, err := parseIDs(c.Args().Slice())
					if err != nil {
						return err
					}
					return execute(c.Context, as, services.RevokeOp{CheckIDs: ids})
				},
			},
			{
				Name:  "checks",
				Usage: "List your checks by basket.",
				Action: func(c *cli.Context) error {
					return execute(c.Context, as, services.QueryChecks{})
				},
			},
			{
				Name:  "balance",
				Usage: "Show your balance.",
				Action: func(c *cli.Context) error {
					return execute(c.Context, as, services.QueryBalance{})
				},
			},
			{
				Name:  "history",
				Usage: "Show your recent operations.",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					return withServices(c.Context, func(ctx context.Context, svc *services.Set) error {
						partyID, err := svc.Resolver.Resolve(ctx, as)
						if err != nil {
							return err
						}
						entries, err := svc.Audit.History(ctx, partyID, c.Int("limit"))
						if err != nil {
							return err
						}
						renderHistory(entries)
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

// withServices opens the configured store with audit writes done inline.
func withServices(ctx context.Context, fn func(context.Context, *services.Set) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DBDriver == config.DriverPostgres && os.Getenv("DB_DRIVER") == "" {
		cfg.DBDriver = config.DriverSQLite
	}
	repos, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fn(ctx, services.NewSet(repos, cfg, nil, quiet, nil))
}

func execute(ctx context.Context, as string, cmd services.Command) error {
	return withServices(ctx, func(ctx context.Context, svc *services.Set) error {
		partyID, err := svc.Resolver.Resolve(ctx, as)
		if err != nil {
			return err
		}
		out, err := svc.Commands.Execute(ctx, services.Envelope{CallerID: partyID, Command: cmd})
		if err != nil {
			return err
		}
		render(out)
		if !out.Success {
			return cli.Exit("", 1)
		}
		return nil
	})
}

func render(out services.Outcome) {
	if out.Checks != nil {
		data := pterm.TableData{{"#", "Basket", "Status", "Amount", "Issuer", "Payee", "Maturity"}}
		for _, v := range out.Checks {
			data = append(data, []string{
				strconv.FormatInt(v.ID, 10),
				string(v.Category),
				string(v.Status),
				v.Amount.StringFixed(2),
				v.IssuerName,
				v.PayeeName,
				v.MaturityDate.Format("2006-01-02"),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	if out.Success {
		pterm.Success.Println(out.Message)
		return
	}
	pterm.Warning.Println(out.Message)
}

func renderHistory(entries []models.AuditLog) {
	data := pterm.TableData{{"Time", "Operation", "Status", "Check"}}
	for _, e := range entries {
		check := ""
		if e.CheckID != nil {
			check = "#" + strconv.FormatInt(*e.CheckID, 10)
		}
		data = append(data, []string{e.Timestamp.Local().Format("2006-01-02 15:04:05"), string(e.OperationType), string(e.Status), check})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		if len(a) > 0 && a[0] == '#' {
			a = a[1:]
		}
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid check id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
