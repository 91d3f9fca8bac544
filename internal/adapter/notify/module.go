package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderdesk/internal/config"
	"github.com/polkiloo/orderdesk/internal/usecase"
)

// Module exposes the customer notifier to fx graph.
var Module = fx.Provide(newNotifier)

type notifierParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newNotifier(p notifierParams) (usecase.Notifier, error) {
	if p.Config.NotifyURL == "" {
		p.Logger.Warn("notify url is not configured, emails will only be logged")
		return NewMailer(NewLogSender(p.Logger)), nil
	}
	sender, err := NewHTTPSender(p.Config.NotifyURL, p.Config.NotifyTimeout, p.Logger)
	if err != nil {
		return nil, err
	}
	return NewMailer(sender), nil
}
