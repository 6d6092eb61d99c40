package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"

	"github.com/owaso30/ManualApp/internal/auth"
	"github.com/owaso30/ManualApp/internal/cache"
	"github.com/owaso30/ManualApp/internal/config"
	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/handler"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/mail"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/service"
	"github.com/owaso30/ManualApp/internal/session"
	"github.com/owaso30/ManualApp/internal/storage"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == "CHANGE_ME_IN_PRODUCTION_SECRET!!" {
		log.Fatal(errors.New("session secret key not set"), "Please set a secure MANUALAPP_SESSION_SECRETKEY environment variable.")
	}

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB.DSN, "migrations"); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB.DSN)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	sessionManager.Store = mysqlstore.New(db.DB)
	sessionManager.Lifetime = time.Duration(cfg.Session.LifetimeDays) * 24 * time.Hour
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled
	sessions := session.NewSCSManager(sessionManager)

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	authenticator, err := auth.NewAuthenticator(&cfg.OIDC)
	if err != nil {
		log.Fatal(err, "Failed to initialize authenticator")
	}
	enforcer, err := auth.NewEnforcer("mysql", cfg.DB.DSN, "auth_model.conf")
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	log.Info("Auth components initialized and policies seeded.")

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	renderCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer renderCache.Close()
	log.Info("Cache initialized.")

	// --- Blob Storage and Mail ---
	blobStore, err := storage.NewS3Store(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal(err, "Failed to initialize S3 storage")
	}
	mailer := mail.NewSMTPSender(cfg.SMTP)
	if !mailer.Configured() {
		log.Warn("SMTP not configured; notification mail disabled")
	}

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	userRepository := data.NewUserRepository(db)
	groupRepository := data.NewGroupRepository(db)
	categoryRepository := data.NewCategoryRepository(db)
	manualRepository := data.NewManualRepository(db)
	contentRepository := data.NewContentRepository(db)

	modeService := service.NewModeService(sessions, userRepository, log)
	accessService := service.NewAccessService(modeService, groupRepository, log)
	groupService := service.NewGroupService(groupRepository, userRepository, mailer, log)
	categoryService := service.NewCategoryService(categoryRepository, modeService, accessService, log)
	manualService := service.NewManualService(manualRepository, contentRepository, categoryRepository, modeService, accessService, blobStore, renderCache, log)
	contentService := service.NewContentService(contentRepository, manualRepository, accessService, blobStore, renderCache, log)

	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(authenticator, userRepository, sessions, enforcer, cfg.OIDC.AdminRole, log),
		Mode:     handler.NewModeHandler(modeService),
		Group:    handler.NewGroupHandler(groupService),
		Category: handler.NewCategoryHandler(categoryService),
		Manual:   handler.NewManualHandler(manualService),
		Content:  handler.NewContentHandler(contentService),
	}

	authzMiddleware := middleware.Authorizer(enforcer, sessions)

	// --- Router Setup ---
	router := handler.NewRouter(handlers, sessions, authzMiddleware, log)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
