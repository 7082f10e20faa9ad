package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/entropy80/investment-app-sub002/src/config"
	"github.com/entropy80/investment-app-sub002/src/database"
	"github.com/entropy80/investment-app-sub002/src/handlers"
	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/security"
	"github.com/entropy80/investment-app-sub002/src/services"
	"github.com/entropy80/investment-app-sub002/src/storage"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Ledger accounting server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	accessService := security.NewAccessService(database.DB)

	ledgerStore := storage.NewSQLiteLedgerStore(database.DB)
	importService := services.NewImportService(ledgerStore)
	priceService := services.NewPriceService(
		config.Cfg.PriceAPIBaseURL,
		config.Cfg.PriceCacheTTL,
		config.Cfg.PriceRequestsPerSecond,
	)
	reportService := services.NewReportService(database.DB, ledgerStore, accessService)
	analyticsService := services.NewAnalyticsService(database.DB, ledgerStore, priceService, accessService)

	importHandler := handlers.NewImportHandler(database.DB, importService, ledgerStore)
	reportHandler := handlers.NewReportHandler(reportService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	requireAuth := handlers.AuthMiddleware(authService)
	protect := func(handler http.HandlerFunc) http.Handler {
		return requireAuth(handler)
	}

	apiRouter.Handle("POST /api/transactions/import", protect(importHandler.HandleImportTransactions))
	apiRouter.Handle("GET /api/transactions", protect(importHandler.HandleListTransactions))
	apiRouter.Handle("GET /api/reports/tax", protect(reportHandler.HandleTaxReport))
	apiRouter.Handle("GET /api/reports/tax/csv", protect(reportHandler.HandleTaxReportCSV))
	apiRouter.Handle("GET /api/analytics", protect(analyticsHandler.HandleAnalytics))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Ledger accounting backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rootMux)

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
