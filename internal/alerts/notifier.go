package alerts

import (
	"context"
	"fmt"
	"net/smtp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
)

type Notifier interface {
	NotifyCriticalAlert(ctx context.Context, alert domain.CriticalAlert) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	To       string
}

type smtpNotifier struct {
	cfg    SMTPConfig
	logger *zap.Logger
	tracer trace.Tracer
}

func NewSMTPNotifier(cfg SMTPConfig, logger *zap.Logger) Notifier {
	return &smtpNotifier{
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("alerts/notifier"),
	}
}

func (n *smtpNotifier) NotifyCriticalAlert(ctx context.Context, alert domain.CriticalAlert) error {
	ctx, span := n.tracer.Start(ctx, "smtp.NotifyCriticalAlert")
	defer span.End()

	span.SetAttributes(
		attribute.String("ship_id", alert.ShipID),
		attribute.Float64("temperature", alert.Temperature),
	)

	subject := fmt.Sprintf("Subject: CRITICAL ALERT: vessel %s\n", alert.ShipID)
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	body := fmt.Sprintf(`
		<h1>Critical engine alert</h1>
		<p>%s</p>
		<p>Reading taken at %s, temperature %.1f&deg;C.</p>
	`, alert.Message, alert.Timestamp, alert.Temperature)

	msg := []byte(subject + mime + body)
	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)

	mylogger.Info(
		ctx,
		n.logger,
		"Sending critical alert email",
		zap.String("ship_id", alert.ShipID),
		zap.String("to", n.cfg.To),
	)

	if err := smtp.SendMail(addr, auth, n.cfg.User, []string{n.cfg.To}, msg); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			n.logger,
			"Error sending critical alert email",
			zap.String("ship_id", alert.ShipID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
