package infrastructure

import (
	"fmt"
	"os/exec"

	"github.com/yourusername/dyt-client/internal/domain"
	"go.uber.org/zap"
)

// NotificationService mirrors download outcomes to desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var (
		name string
		args []string
	)
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		if n.config.Sound {
			script += ` sound name "Glass"`
		}
		name, args = "osascript", []string{"-e", script}
	case "notify-send":
		name, args = "notify-send", []string{title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

// NotifyDownloadCompleted sends notification when a download completes
func (n *NotificationService) NotifyDownloadCompleted(title, filename string) {
	message := fmt.Sprintf("Ready: %s", truncateString(displayName(title, filename), 40))
	_ = n.Send("Download Completed", message)
}

// NotifyDownloadFailed sends notification when a download fails
func (n *NotificationService) NotifyDownloadFailed(title string, err error) {
	message := fmt.Sprintf("%s: %s", truncateString(displayName(title, "download"), 30), domain.UserMessage(err))
	_ = n.Send("Download Failed", message)
}

// NotifyBatchCompleted sends notification when a playlist run ends
func (n *NotificationService) NotifyBatchCompleted(successCount, totalCount int) {
	message := fmt.Sprintf("%d of %d videos downloaded", successCount, totalCount)
	_ = n.Send("Playlist Completed", message)
}

func displayName(title, fallback string) string {
	if title != "" {
		return title
	}
	return fallback
}

// truncateString truncates a string to the specified number of runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
