package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourusername/dyt-client/internal/app"
	"github.com/yourusername/dyt-client/internal/domain"
	"github.com/yourusername/dyt-client/internal/infrastructure"
	"github.com/yourusername/dyt-client/pkg/logger"
)

// session wires the controller to the real service, ledger and presenter
type session struct {
	config     *domain.Config
	log        *zap.Logger
	events     *logger.MultiLogger
	repo       *infrastructure.SQLiteTaskRepository
	presenter  *terminalPresenter
	controller *app.Controller
}

func loadConfig() (*domain.Config, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func newLogger(config *domain.Config) (*zap.Logger, *logger.MultiLogger, error) {
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if config.Logging.EventsDir == "" {
		return log, nil, nil
	}

	events, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   "info",
		LogsDir: config.Logging.EventsDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize event logs: %w", err)
	}
	return events.Tee(log), events, nil
}

func openSession(config *domain.Config) (*session, error) {
	log, events, err := newLogger(config)
	if err != nil {
		return nil, err
	}

	repo, err := infrastructure.NewSQLiteTaskRepository(config.Ledger.DatabasePath)
	if err != nil {
		if events != nil {
			events.Close()
		}
		return nil, err
	}

	dialer, err := infrastructure.NewWebSocketDialer(&config.Service, log)
	if err != nil {
		repo.Close()
		if events != nil {
			events.Close()
		}
		return nil, err
	}

	s := &session{
		config:    config,
		log:       log,
		events:    events,
		repo:      repo,
		presenter: newTerminalPresenter(os.Stdout, quiet),
	}

	deps := app.ControllerDeps{
		Service:     infrastructure.NewHTTPVideoService(&config.Service, log),
		Dialer:      dialer,
		Saver:       infrastructure.NewHTTPFileSaver(&config.Service, &config.Download, log),
		Records:     repo,
		Presenter:   s.presenter,
		Config:      config.Session,
		Logger:      log,
		MultiLogger: events,
	}
	if config.Notification.Enabled {
		deps.Notifier = infrastructure.NewNotificationService(&config.Notification, log)
	}
	s.controller = app.NewController(deps)

	log.Debug("Session opened",
		zap.String("service", config.Service.BaseURL),
		zap.String("save_dir", config.Download.SaveDir),
		zap.Bool("native_host", config.Session.NativeHost))

	return s, nil
}

// wait blocks until the running flow ends; an interrupt stops it
func (s *session) wait() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		s.controller.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Info("Received shutdown signal")
		s.controller.Close()
		<-done
		return fmt.Errorf("interrupted")
	}
}

func (s *session) close() {
	s.controller.Close()
	if err := s.repo.Close(); err != nil {
		s.log.Warn("Failed to close ledger", zap.Error(err))
	}
	if s.events != nil {
		_ = s.events.Close()
	}
	_ = s.log.Sync()
}
