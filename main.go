// ABOUTME: Entry point for the farescout fare-watch service
// ABOUTME: `run` prints or delivers digests once; `serve` runs HTTP + scheduler

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/farescout/farescout/config"
	"github.com/farescout/farescout/handlers"
	"github.com/farescout/farescout/logger"
	"github.com/farescout/farescout/services"
)

func main() {
	root := &cobra.Command{
		Use:           "farescout",
		Short:         "Watches round-trip fares and publishes daily deal digests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var notify bool
	var groupName string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Produce digests once and print them (or deliver with --notify)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flights, notifier, err := setup()
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg, flights, notifier, groupName, notify)
		},
	}
	runCmd.Flags().StringVar(&groupName, "group", "", "single destination group (tokyo, osaka, hokkaido, okinawa)")
	runCmd.Flags().BoolVar(&notify, "notify", false, "deliver via the configured webhook instead of printing")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily publish schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flights, notifier, err := setup()
			if err != nil {
				return err
			}
			return serve(cfg, flights, notifier)
		},
	}

	root.AddCommand(runCmd, serveCmd)

	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// setup builds the long-lived pipeline objects: config, the flight client,
// the rate cache, and the optional notifier.
func setup() (*config.Config, *services.FlightsService, services.Notifier, error) {
	// A local .env is a convenience, not a requirement.
	_ = godotenv.Load()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Starting farescout",
		"amadeus_host", cfg.AmadeusHost, "market", cfg.Market,
		"origin", cfg.Origin, "currency", cfg.Currency, "second_currency", cfg.SecondCurrency)

	amadeus := services.NewAmadeusClient(
		cfg.AmadeusHost, cfg.AmadeusClientID, cfg.AmadeusClientSecret,
		cfg.SearchRPS, time.Duration(cfg.SearchTimeout)*time.Second)

	fx := services.NewRateCache(time.Duration(cfg.FXCacheHours)*time.Hour, cfg.FXUSDCLP)

	flights := services.NewFlightsService(cfg, amadeus, fx)

	var notifier services.Notifier
	if cfg.WebhookURL != "" {
		notifier = services.NewWebhookNotifier(cfg.WebhookURL)
	} else {
		slog.Warn("WEBHOOK_URL not set, digests can only be printed or fetched over HTTP")
	}

	return cfg, flights, notifier, nil
}

func runOnce(ctx context.Context, cfg *config.Config, flights *services.FlightsService,
	notifier services.Notifier, groupName string, notify bool) error {

	groups := services.DealGroups(cfg)
	if groupName != "" {
		group, ok := services.GroupByName(cfg, groupName)
		if !ok {
			return fmt.Errorf("unknown destination group %q", groupName)
		}
		groups = []services.DealGroup{group}
	} else {
		// Without an explicit group, run the standing daily pair.
		groups = groups[:2]
	}

	for _, group := range groups {
		msg, err := flights.GroupDeals(ctx, group)
		if err != nil {
			return fmt.Errorf("group %s: %w", group.Name, err)
		}
		if notify {
			if notifier == nil {
				return fmt.Errorf("--notify requires WEBHOOK_URL")
			}
			if err := notifier.Send(ctx, msg); err != nil {
				return fmt.Errorf("group %s: %w", group.Name, err)
			}
			slog.Info("Digest delivered", "group", group.Name)
			continue
		}
		fmt.Println(msg)
		fmt.Println()
	}
	return nil
}

func serve(cfg *config.Config, flights *services.FlightsService, notifier services.Notifier) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := services.NewPublisher(cfg, flights, notifier)
	go publisher.RunSchedule(ctx)

	h := handlers.NewHandler(cfg, flights, notifier)
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, h, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
