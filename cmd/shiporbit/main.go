package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/config"
	"github.com/example/shiporbit-client/internal/logging"
	"github.com/example/shiporbit-client/internal/persistence/sqlite"
	"github.com/example/shiporbit-client/internal/session"
)

func main() {
	logger := logging.New("shiporbit")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	sealer := sqlite.NewSealer(cfg.StateSecret, sqlite.DefaultArgon2idParams)
	store, err := sqlite.Open(cfg.StateDSN, sealer)
	if err != nil {
		logger.Error("failed to open local state", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close local state", "error", cerr)
		}
	}()

	client := api.New(api.Options{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	manager := session.NewManager(client, store, time.Now, logger)
	client.SetTokenSource(manager)
	client.OnUnauthorized(manager.HandleUnauthorized)

	app := &app{
		cfg:     cfg,
		client:  client,
		store:   store,
		session: manager,
		logger:  logger,
		stdout:  os.Stdout,
	}

	command, args := os.Args[1], os.Args[2:]
	if command != "login" {
		manager.Hydrate(ctx)
	}

	if err := app.run(ctx, command, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: shiporbit <command> [flags]

commands:
  register        create an account
  shipping-needs  complete the onboarding questionnaire
  verify-email    verify your email, or resend the link
  password-reset  request or confirm a password reset
  login           authenticate and store the session
  logout          clear the session
  whoami          show the authenticated user
  cities          search pickup and dropoff cities
  quote           price a lane
  create          create a shipment draft
  appointment     submit facility details for a draft (-confirm to move on)
  finalize        submit finalize details and move to checkout (-save to finish later)
  checkout        pay for a shipment
  shipments       list shipments, or show one by id
  invoices        show invoices and billing totals`)
}
