package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/config"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/engine"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/handlers"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/store"
)

func main() {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	if err := db.InitSchema(); err != nil {
		slog.Error("Failed to init schema", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate("migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		slog.Error("Failed to create upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. The basket engine owns all live sessions; the store backs all three
	// of its collections.
	basketEngine := engine.New(db, db, db)

	// 5. Setup Handlers
	userHandler := &handlers.UserHandler{
		Store:        db,
		Engine:       basketEngine,
		SessionStore: sessionStore,
	}
	needHandler := &handlers.NeedHandler{
		Store:     db,
		UploadDir: cfg.UploadDir,
	}
	basketHandler := &handlers.BasketHandler{
		Engine:       basketEngine,
		SessionStore: sessionStore,
	}
	receiptHandler := &handlers.ReceiptHandler{
		Store: db,
	}
	inboxHandler := &handlers.InboxHandler{
		Store:        db,
		Engine:       basketEngine,
		SessionStore: sessionStore,
	}

	mux := http.NewServeMux()

	// Static Files (need images)
	fileServer := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static", fileServer))

	// Rate limiter for the anonymous auth endpoints
	rateLimiter := handlers.NewRateLimiter(2 * time.Second)

	mux.HandleFunc("GET /api/csrf", handlers.CSRFToken)

	// Users
	mux.HandleFunc("POST /api/users", rateLimiter.Middleware(userHandler.Register))
	mux.HandleFunc("POST /api/users/login", rateLimiter.Middleware(userHandler.Login))
	mux.HandleFunc("POST /api/users/logout", userHandler.Logout)
	mux.HandleFunc("GET /api/users/me", userHandler.Me)

	// Cupboard
	mux.HandleFunc("GET /api/needs", needHandler.List)
	mux.HandleFunc("GET /api/needs/{name}", needHandler.Get)
	mux.HandleFunc("POST /api/needs", userHandler.AdminOnly(needHandler.Create))
	mux.HandleFunc("PUT /api/needs/{name}", userHandler.AdminOnly(needHandler.Update))
	mux.HandleFunc("DELETE /api/needs/{name}", userHandler.AdminOnly(needHandler.Delete))
	mux.HandleFunc("POST /api/needs/{name}/image", userHandler.AdminOnly(needHandler.UploadImage))

	// Basket (supporter session)
	mux.HandleFunc("GET /api/basket", basketHandler.Get)
	mux.HandleFunc("GET /api/basket/{name}", basketHandler.GetNeed)
	mux.HandleFunc("PUT /api/basket", basketHandler.Set)
	mux.HandleFunc("DELETE /api/basket/{name}", basketHandler.Remove)
	mux.HandleFunc("GET /api/basketable", basketHandler.Basketable)
	mux.HandleFunc("POST /api/basket/checkout", basketHandler.Checkout)

	// Receipts
	mux.HandleFunc("GET /api/receipts", userHandler.AdminOnly(receiptHandler.List))
	mux.HandleFunc("GET /api/receipts/{supporter}", receiptHandler.ListFor)
	mux.HandleFunc("GET /api/receipts/{supporter}/{need}", receiptHandler.Get)
	mux.HandleFunc("GET /api/receipts/{supporter}/total", receiptHandler.Total)
	mux.HandleFunc("GET /api/leaderboard", receiptHandler.Leaderboard)

	// Inbox
	mux.HandleFunc("GET /api/inbox", inboxHandler.Get)
	mux.HandleFunc("POST /api/inbox", userHandler.AdminOnly(inboxHandler.Send))
	mux.HandleFunc("DELETE /api/inbox/{needName}", inboxHandler.Delete)

	// 6. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> CSRF -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(mux),
		),
	)

	// 7. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
