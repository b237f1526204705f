// Command seed registers users for local development and prints their
// invite codes. With -pair, consecutive users are paired through the normal
// request/accept flow.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/HammerMeetNail/anniversary/internal/config"
	"github.com/HammerMeetNail/anniversary/internal/database"
	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/services"
	"github.com/HammerMeetNail/anniversary/internal/store"
)

func main() {
	var usernames string
	var pair bool
	flag.StringVar(&usernames, "users", "alice,bob,carol,dave", "comma-separated usernames to register")
	flag.BoolVar(&pair, "pair", false, "pair users two at a time (1st with 2nd, 3rd with 4th, ...)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, splitNames(usernames), pair); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, names []string, pair bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.DSN(), database.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	if _, err := database.MigrateUp(cfg.Database.DSN(), cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	uow := store.NewPostgres(db.Adapter())
	pairing := services.NewPairingService(uow)
	pairing.SetLogger(logging.New().SetLevel(logging.LevelWarn))

	return seed(ctx, services.NewUserService(uow), pairing, names, pair, os.Stdout)
}

func splitNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func seed(ctx context.Context, users services.UserServiceInterface, pairing services.PairingServiceInterface, names []string, pair bool, out io.Writer) error {
	created := make([]*models.User, 0, len(names))
	for _, name := range names {
		user, err := users.Create(ctx, models.CreateUserParams{Username: name})
		if err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
		created = append(created, user)
		fmt.Fprintf(out, "%-20s %s  %s\n", user.Username, user.InviteCode, user.ID)
	}

	if !pair {
		return nil
	}
	for i := 0; i+1 < len(created); i += 2 {
		from, to := created[i], created[i+1]
		req, err := pairing.SendRequestByInviteCode(ctx, from.ID, to.InviteCode)
		if err != nil {
			return fmt.Errorf("requesting %s -> %s: %w", from.Username, to.Username, err)
		}
		couple, err := pairing.AcceptRequest(ctx, req.ID, to.ID, nil)
		if err != nil {
			return fmt.Errorf("accepting %s -> %s: %w", from.Username, to.Username, err)
		}
		fmt.Fprintf(out, "paired %s + %s (couple %s)\n", from.Username, to.Username, couple.ID)
	}
	return nil
}
