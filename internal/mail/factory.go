package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/vestibule/internal/config"
)

// NewFromConfig picks the transport named by MAIL_DRIVER.
func NewFromConfig(ctx context.Context, cfg config.MailConfig, logger *slog.Logger) (*Service, error) {
	var transport Transport

	switch cfg.Driver {
	case "smtp":
		transport = NewSMTPTransport(SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPassword,
			FromAddress: cfg.FromAddress,
			FromName:    cfg.FromName,
		})
	case "ses":
		t, err := NewSESTransport(ctx, cfg.AWSRegion, cfg.FromAddress, logger)
		if err != nil {
			return nil, err
		}
		transport = t
	case "none", "":
		transport = &NopTransport{Logger: logger}
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}

	return NewService(transport, logger)
}
