package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"earnbot/cmd"
	"earnbot/config"
	"earnbot/database"
	"earnbot/events"
	"earnbot/models"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func init() {
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name:  "earnbot",
		Usage: "earnings ledger and withdrawal service",
		Commands: []*cli.Command{
			commandServe(),
			commandMigrate(),
			commandSettings(),
			commandWithdrawals(),
			commandAccounts(),
			commandAds(),
			commandStats(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, Telegram bot and background jobs",
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return cmd.Run(ctx)
		},
	}
}

func commandMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					return database.MigrateUp(config.Get().GetDatabaseURL())
				},
			},
			{
				Name:      "down",
				Usage:     "roll back migrations",
				ArgsUsage: "[steps]",
				Action: func(c *cli.Context) error {
					steps := 1
					if c.Args().Present() {
						n, err := strconv.Atoi(c.Args().First())
						if err != nil {
							return fmt.Errorf("invalid step count %q: %w", c.Args().First(), err)
						}
						steps = n
					}
					return database.MigrateDown(config.Get().GetDatabaseURL(), steps)
				},
			},
			{
				Name:  "status",
				Usage: "show the current schema version",
				Action: func(c *cli.Context) error {
					version, dirty, err := database.MigrateStatus(config.Get().GetDatabaseURL())
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "version: %d, dirty: %t\n", version, dirty)
					return nil
				},
			},
		},
	}
}

func commandSettings() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "read and change runtime ledger settings",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					settings, err := svc.Settings.GetSettings(ctx)
					if err != nil {
						return err
					}
					values := make(map[string]string, len(models.SettingKeys))
					for _, key := range models.SettingKeys {
						values[string(key)] = settings.Value(key)
					}
					return printJSON(c, values)
				}),
			},
			{
				Name:      "get",
				ArgsUsage: "<key>",
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					if c.Args().Len() != 1 {
						return cli.Exit("usage: earnbot settings get <key>", 2)
					}
					value, err := svc.Settings.GetSetting(ctx, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, value)
					return nil
				}),
			},
			{
				Name:      "set",
				ArgsUsage: "<key> <value>",
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					if c.Args().Len() != 2 {
						return cli.Exit("usage: earnbot settings set <key> <value>", 2)
					}
					stored, err := svc.Settings.SetSetting(ctx, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s = %s\n", c.Args().Get(0), stored)
					return nil
				}),
			},
		},
	}
}

func commandWithdrawals() *cli.Command {
	transition := func(status models.WithdrawalStatus) cli.ActionFunc {
		return withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
			if !c.Args().Present() {
				return cli.Exit("usage: earnbot withdrawals "+c.Command.Name+" <id>", 2)
			}
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid withdrawal id %q: %w", c.Args().First(), err)
			}
			var txRef *string
			if ref := c.String("tx-ref"); ref != "" {
				txRef = &ref
			}
			withdrawal, err := svc.Withdrawals.SetWithdrawalStatus(ctx, id, status, txRef)
			if err != nil {
				return err
			}
			return printJSON(c, withdrawal)
		})
	}
	txRefFlag := &cli.StringFlag{Name: "tx-ref", Usage: "external payment reference"}

	return &cli.Command{
		Name:  "withdrawals",
		Usage: "review and settle withdrawal requests",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "pending, approved, rejected or paid"},
					&cli.IntFlag{Name: "limit", Value: 50},
				},
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					var status *models.WithdrawalStatus
					if s := c.String("status"); s != "" {
						parsed := models.WithdrawalStatus(s)
						status = &parsed
					}
					withdrawals, err := svc.Withdrawals.ListWithdrawals(ctx, status, c.Int("limit"))
					if err != nil {
						return err
					}
					return printJSON(c, withdrawals)
				}),
			},
			{Name: "approve", ArgsUsage: "<id>", Flags: []cli.Flag{txRefFlag}, Action: transition(models.WithdrawalStatusApproved)},
			{Name: "reject", ArgsUsage: "<id>", Action: transition(models.WithdrawalStatusRejected)},
			{Name: "pay", ArgsUsage: "<id>", Flags: []cli.Flag{txRefFlag}, Action: transition(models.WithdrawalStatusPaid)},
		},
	}
}

func commandAccounts() *cli.Command {
	setBanned := func(banned bool) cli.ActionFunc {
		return withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
			externalID, err := externalIDArg(c)
			if err != nil {
				return err
			}
			account, err := svc.Accounts.SetBanned(ctx, externalID, banned)
			if err != nil {
				return err
			}
			return printJSON(c, account)
		})
	}

	return &cli.Command{
		Name:  "accounts",
		Usage: "inspect and moderate accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.IntFlag{Name: "limit", Value: 50}},
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					accounts, err := svc.Accounts.ListAccounts(ctx, c.Int("limit"))
					if err != nil {
						return err
					}
					return printJSON(c, accounts)
				}),
			},
			{
				Name:      "audit",
				Usage:     "reconcile an account against its earning and withdrawal rows",
				ArgsUsage: "<external-id>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "history", Value: 20}},
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					externalID, err := externalIDArg(c)
					if err != nil {
						return err
					}
					audit, err := svc.Accounts.AuditAccount(ctx, externalID, c.Int("history"))
					if err != nil {
						return err
					}
					if err := printJSON(c, audit); err != nil {
						return err
					}
					if !audit.Reconciled {
						return cli.Exit("account does not reconcile", 1)
					}
					return nil
				}),
			},
			{Name: "ban", ArgsUsage: "<external-id>", Action: setBanned(true)},
			{Name: "unban", ArgsUsage: "<external-id>", Action: setBanned(false)},
			{
				Name:      "bonus",
				ArgsUsage: "<external-id> <amount>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "reason", Value: "Admin bonus"}},
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					if c.Args().Len() != 2 {
						return cli.Exit("usage: earnbot accounts bonus <external-id> <amount>", 2)
					}
					externalID, err := externalIDArg(c)
					if err != nil {
						return err
					}
					amount, err := decimal.NewFromString(c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
					}
					event, err := svc.Earnings.GrantBonus(ctx, externalID, amount, c.String("reason"))
					if err != nil {
						return err
					}
					return printJSON(c, event)
				}),
			},
		},
	}
}

func commandAds() *cli.Command {
	return &cli.Command{
		Name:  "ads",
		Usage: "manage the ad catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "active", Usage: "only active ads"}},
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					ads, err := svc.Ads.ListAds(ctx, c.Bool("active"))
					if err != nil {
						return err
					}
					return printJSON(c, ads)
				}),
			},
			{
				Name:      "add",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "earnings", Usage: "reward amount, defaults to ad_earning_rate"},
					&cli.IntFlag{Name: "weight", Value: 1},
				},
				Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
					if !c.Args().Present() {
						return cli.Exit("usage: earnbot ads add <title>", 2)
					}
					var earnings *decimal.Decimal
					if e := c.String("earnings"); e != "" {
						d, err := decimal.NewFromString(e)
						if err != nil {
							return fmt.Errorf("invalid earnings %q: %w", e, err)
						}
						earnings = &d
					}
					ad, err := svc.Ads.AddAd(ctx, c.Args().First(), c.String("description"), earnings, c.Int("weight"))
					if err != nil {
						return err
					}
					return printJSON(c, ad)
				}),
			},
		},
	}
}

func commandStats() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print ledger-wide totals",
		Action: withServices(func(ctx context.Context, c *cli.Context, svc cmd.Services) error {
			stats, err := svc.Stats.GetSystemStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(c, stats)
		}),
	}
}

// withServices connects to the database and runs action against the ledger services
func withServices(action func(ctx context.Context, c *cli.Context, svc cmd.Services) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg := config.Get()
		cfg.ConfigureLogging()

		db, err := database.NewConnection(c.Context, cfg.GetDatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		// events from CLI changes have no subscribers in this process
		return action(c.Context, c, cmd.NewServices(cfg, db, events.NewBus()))
	}
}

func externalIDArg(c *cli.Context) (int64, error) {
	if !c.Args().Present() {
		return 0, cli.Exit("missing <external-id>", 2)
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid external id %q: %w", c.Args().First(), err)
	}
	return id, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
