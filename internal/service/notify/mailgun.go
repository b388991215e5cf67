package notify

import (
	"context"
	"errors"
	"fmt"

	"ScoutSync/internal/domain/models"
	applogger "ScoutSync/pkg/logger"

	"github.com/mailgun/mailgun-go/v4"
)

type MailgunConfig struct {
	Domain  string
	APIKey  string
	BaseURL string
	From    string
	To      []string
}

// MailgunNotifier emails outcomes through the Mailgun API.
type MailgunNotifier struct {
	mg   mailgun.Mailgun
	from string
	to   []string
	l    *applogger.Logger
}

func NewMailgunNotifier(cfg MailgunConfig, l *applogger.Logger) (*MailgunNotifier, error) {
	if cfg.Domain == "" || cfg.APIKey == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("mailgun: domain, api key, sender and recipients are required")
	}
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.BaseURL != "" {
		mg.SetAPIBase(cfg.BaseURL)
	}
	return &MailgunNotifier{mg: mg, from: cfg.From, to: cfg.To, l: l}, nil
}

func (n *MailgunNotifier) Notify(ctx context.Context, res *models.ReconciliationResult) error {
	msg := n.mg.NewMessage(n.from, Subject, Body(res), n.to...)
	resp, id, err := n.mg.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mailgun send: %w (response: %s)", err, resp)
	}
	if n.l != nil {
		n.l.Debug("outcome email queued",
			applogger.String("file", res.File),
			applogger.String("mailgun_id", id),
		)
	}
	return nil
}
