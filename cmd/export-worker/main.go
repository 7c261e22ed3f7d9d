package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Ezzerof/expense-tracker/internal/amqp"
	"github.com/Ezzerof/expense-tracker/internal/backend"
	"github.com/Ezzerof/expense-tracker/internal/config"
	applog "github.com/Ezzerof/expense-tracker/internal/log"
	"github.com/Ezzerof/expense-tracker/internal/sheets"
	gsheet "github.com/Ezzerof/expense-tracker/internal/sheets/google"
	sheetsmem "github.com/Ezzerof/expense-tracker/internal/sheets/memory"
	"github.com/Ezzerof/expense-tracker/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	slog.SetDefault(logger.Logger)

	logger.Info("Starting export-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	dataStore, cleanup, err := backend.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Without a spreadsheet the worker still drains the queue, writing to
	// an in-process sink. That keeps the queue from backing up in
	// deployments that have not configured Sheets yet.
	var writer sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = sheetsmem.New()
		logger.Info("Google Sheets disabled, exporting to in-process sink")
	}

	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	exportWorker := worker.NewExportWorker(dataStore, dataStore, writer, cfg.ExportBatchSize)

	logger.Info("Consuming ledger events",
		"queue", cfg.AMQPQueue,
		"re_export_interval", cfg.ExportInterval.String(),
		"re_export_batch_size", cfg.ExportBatchSize)
	if err := exportWorker.Run(ctx, events, cfg.ExportInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
