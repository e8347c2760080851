// Command migrate manages the storefront schema and demo data.
//
//	migrate up | down | status | to VERSION | validate | seed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/internal/seed"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func main() {
	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	seedPassword := flags.String("seed-password", os.Getenv("STOREFRONT_SEED_PASSWORD"), "password shared by the demo accounts")
	_ = flags.Parse(os.Args[1:])

	command := flags.Arg(0)
	if command == "" {
		command = "up"
	}
	if err := run(command, flags.Args(), *seedPassword); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(command string, args []string, seedPassword string) error {
	if command == "validate" {
		if err := migrate.Validate(migrate.Files()); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": command})

	database, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer database.Close()

	switch {
	case command == "seed":
		result, err := seed.Run(ctx, database.DB(), seed.Options{Password: seedPassword, PasswordConfig: cfg.Password}, logg)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		fmt.Printf("seeded %d products and %d users\n", result.Products, result.Users)
		return nil
	case cfg.DB.Driver == config.DriverSQLite:
		if command != "up" {
			return errors.New("sqlite databases only support up")
		}
		return database.AutoMigrate(ctx)
	}

	sqlDB, err := database.DB().DB()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "schema up to date")
		return nil
	case "down":
		return runner.Down(ctx)
	case "to":
		if len(args) < 2 {
			return errors.New("to needs a target version")
		}
		version, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", args[1], err)
		}
		return runner.To(ctx, version)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		out := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(out, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.DateTime)
			}
			fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		return out.Flush()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
