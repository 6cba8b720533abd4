package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/Thykp/SPM-Team2-sub002/internal/config"
	"github.com/Thykp/SPM-Team2-sub002/internal/model"
)

// Service is the best-effort email side path. Failures are logged by callers,
// never propagated into delivery.
type Service interface {
	SendNotification(ctx context.Context, to string, notification *model.EnrichedNotification) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.EmailConfig) Service {
	if !cfg.Enabled {
		return &noopService{}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendNotification(_ context.Context, to string, notification *model.EnrichedNotification) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subjectFor(notification.Type))
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nFrom: %s", notification.Text, notification.FromUsername))

	return s.dialer.DialAndSend(m)
}

func subjectFor(notifType string) string {
	switch notifType {
	case model.NotifTypeDeadlineReminder:
		return "Task deadline reminder"
	case model.NotifTypeTaskUpdate:
		return "A task you collaborate on was updated"
	case model.NotifTypeAddedToProject:
		return "You were added to a project"
	default:
		return "New notification"
	}
}

type noopService struct{}

func (s *noopService) SendNotification(context.Context, string, *model.EnrichedNotification) error {
	return nil
}
