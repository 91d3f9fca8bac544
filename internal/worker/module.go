package worker

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderdesk/internal/adapter/lock"
	"github.com/polkiloo/orderdesk/internal/config"
	"github.com/polkiloo/orderdesk/internal/usecase"
)

// Module provides the reminder sweeper.
var Module = fx.Provide(newReminderSweeper)

type sweeperParams struct {
	fx.In

	Config    *config.Config
	Reminders *usecase.ReminderUseCase
	Locker    lock.Locker
	Logger    *slog.Logger
}

func newReminderSweeper(p sweeperParams) *ReminderSweeper {
	return NewReminderSweeper(p.Reminders, p.Locker, p.Config.ReminderInterval, p.Config.ReminderLockTTL, p.Logger)
}
