package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/riskibarqy/patient-onboarding/internal/config"
	"github.com/riskibarqy/patient-onboarding/internal/infrastructure/apiclient"
	"github.com/riskibarqy/patient-onboarding/internal/interfaces/tui"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "onboard:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	// stdout belongs to the terminal UI
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := logging.NewJSONWriter(cfg.LogLevel, logFile).With("service", "patient-onboarding-tui")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	client := apiclient.NewClient(apiclient.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
	}, logger)

	app := tui.New(ctx, client, client, client, logger, tui.WithTimeout(cfg.Timeout))
	if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	logger.Info("onboarding session closed", "api_url", cfg.APIURL)
	return nil
}
