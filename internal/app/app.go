package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/analyzer"
	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/database"
	"inbox-autopilot-go/internal/handlers"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/provider"
	"inbox-autopilot-go/internal/repository"
	"inbox-autopilot-go/internal/rules"
	"inbox-autopilot-go/internal/scheduler"
	"inbox-autopilot-go/internal/server"
	"inbox-autopilot-go/internal/staging"
	"inbox-autopilot-go/internal/undo"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Inbox Autopilot Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()

	var mail provider.MailProvider
	var closeMail func() error
	if cfg.Provider.UseIMAP {
		imapProvider, err := provider.NewIMAPProvider(&cfg.Provider)
		if err != nil {
			return fmt.Errorf("failed to create IMAP provider: %w", err)
		}
		mail = imapProvider
		closeMail = imapProvider.Close
		logrus.Info("Using IMAP mail provider")
	} else {
		mail, err = provider.NewGmailProvider(&cfg.Provider)
		if err != nil {
			return fmt.Errorf("failed to create Gmail provider: %w", err)
		}
		logrus.Info("Using Gmail API mail provider")
	}

	eventRepo := repository.NewEventRepository(dbConn)
	patternRepo := repository.NewPatternRepository(dbConn)
	stagedRepo := repository.NewStagedRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)
	ruleRepo := repository.NewRuleRepository(dbConn)

	engine := analyzer.NewEngine(eventRepo, patternRepo, m, cfg.Analyzer)
	pipeline := staging.NewPipeline(stagedRepo, auditRepo, mail, m, staging.LogNotifier{}, cfg.Staging)
	undoer := undo.NewService(auditRepo, stagedRepo, mail, m)
	ruleSvc := rules.NewService(patternRepo, ruleRepo, pipeline, auditRepo)

	sched := scheduler.NewScheduler(&cfg.Scheduler, engine, pipeline, eventRepo)

	h := handlers.NewHandlers(dbConn, engine, pipeline, undoer, ruleSvc, patternRepo, stagedRepo, auditRepo, sched)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if closeMail != nil {
		if err := closeMail(); err != nil {
			logrus.Errorf("Failed to close mail provider: %v", err)
		}
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
