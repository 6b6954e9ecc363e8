package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"smartline-backend/internal/avito"
	"smartline-backend/internal/config"
	"smartline-backend/internal/db"
	"smartline-backend/internal/handler"
	"smartline-backend/internal/repository"
	"smartline-backend/internal/server"
	"smartline-backend/internal/service"
	"smartline-backend/internal/telegram"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// repositories
	clientRepo := repository.ClientRepository{DB: pg}
	orderRepo := repository.OrderRepository{DB: pg}
	workOrderRepo := repository.WorkOrderRepository{DB: pg}
	productRepo := repository.ProductRepository{DB: pg}
	supplierRepo := repository.SupplierRepository{DB: pg}
	receiptRepo := repository.ReceiptRepository{DB: pg}
	financeRepo := repository.FinanceRepository{DB: pg}
	employeeRepo := repository.EmployeeRepository{DB: pg}
	avitoRepo := repository.AvitoRepository{DB: pg}

	// outbound clients
	avitoClient := avito.NewClient(cfg.AvitoBaseURL, cfg.AvitoClientID, cfg.AvitoClientSecret)
	tgClient := telegram.NewClient(cfg.TelegramBaseURL, cfg.TelegramBotToken)

	// services
	avitoSvc := service.AvitoService{Client: avitoClient, Repo: avitoRepo, Logger: logger}
	notifySvc := service.NotifyService{Sender: tgClient, WorkOrders: workOrderRepo, Logger: logger}

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	clientHandler := handler.ClientHandler{Store: clientRepo}
	orderHandler := handler.OrderHandler{Store: orderRepo}
	workOrderHandler := handler.WorkOrderHandler{Store: workOrderRepo}
	warehouseHandler := handler.WarehouseHandler{Products: productRepo, Suppliers: supplierRepo, Receipts: receiptRepo}
	exportHandler := handler.ExportHandler{Products: productRepo}
	financeHandler := handler.FinanceHandler{Store: financeRepo}
	employeeHandler := handler.EmployeeHandler{Store: employeeRepo}
	avitoHandler := handler.AvitoHandler{Service: avitoSvc}
	telegramHandler := handler.TelegramHandler{Service: notifySvc}

	router := server.NewRouter(logger, healthHandler, clientHandler, orderHandler, workOrderHandler,
		warehouseHandler, exportHandler, financeHandler, employeeHandler, avitoHandler, telegramHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
