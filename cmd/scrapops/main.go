package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"scrapops/internal/amqp"
	"scrapops/internal/cli"
	"scrapops/internal/core"
	"scrapops/internal/export"
	apphttp "scrapops/internal/http"
	"scrapops/internal/inventory"
	"scrapops/internal/ledger"
	"scrapops/internal/obligation"
	"scrapops/internal/receipt"
	"scrapops/internal/services"
	"scrapops/internal/summary"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting scrapops")

	cfg := cli.LoadAndValidateConfig(logger)
	rates := cli.LoadRates(logger, cfg.RatesFile)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// Initialize AMQP client for publishing sync messages (optional)
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, records will sync via periodic scan", "error", err)
		} else {
			defer amqpClient.Close()
		}
	}

	// Assemble the engine
	l := ledger.New()
	tracker := obligation.NewTracker(obligation.RateTable(rates.MaterialRates))
	inv := inventory.NewStore()
	gen := receipt.NewGenerator()
	agg := summary.NewAggregator(l, tracker, inv, nil, nil)

	// Continue receipt numbering where the last run stopped
	ctx := context.Background()
	for _, rt := range []core.ReceiptType{core.CollectionReceipt, core.SaleReceipt} {
		last, err := sqliteRepo.LastReceiptNumber(ctx, rt)
		if err != nil {
			logger.Error("Failed to restore receipt counter", "type", rt, "error", err)
			os.Exit(1)
		}
		gen.Seed(rt, last)
		logger.Info("Receipt counter restored", "type", string(rt), "last", last)
	}

	ops := services.NewOperationsService(l, tracker, inv, gen, agg, sqliteRepo, amqpClient)
	ops.SetPriceTables(rates.SalePrices, rates.VATRates)

	// Push generated summaries to the reporting backend
	exporter := cli.InitExporter(ctx, logger, cfg)
	if se, ok := exporter.(export.SummaryExporter); ok {
		ops.SetSummaryExporter(se)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ops)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting scrapops server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"rates_file", cfg.RatesFile)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}
