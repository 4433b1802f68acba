package availability

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type NotifyConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// Notifier emails the operators when a scrape run dies. A zero config
// disables it, scrapes never fail because the mail server is down.
type Notifier struct {
	config NotifyConfig
}

func NewNotifier(config NotifyConfig) Notifier {
	return Notifier{config: config}
}

func (n Notifier) Enabled() bool {
	return n.config.Server != "" && len(n.config.Recipients) > 0
}

func (n Notifier) NotifyFailure(ctx context.Context, scrapeId string, scrapeErr error) {
	if !n.Enabled() {
		return
	}

	ctx, span := tracer.Start(ctx, "NotifyFailure")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("PadelScout <%s>", n.config.EmailAddress)
	mail.To = n.config.Recipients
	mail.Subject = "Scrape run failed"

	run := scrapeId
	if run == "" {
		run = "(no run created)"
	}
	body := fmt.Sprintf(`A scrape run failed and could not recover on its own.

Run: %s
Error: %v

Check the scraper logs for the full trace.`, run, scrapeErr)
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send failure email")
		slog.ErrorContext(ctx, "failed to send failure email", "err", err)
	}
}
