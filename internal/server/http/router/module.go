package router

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderdesk/internal/app"
	"github.com/polkiloo/orderdesk/internal/server/http/handlers"
)

// Module builds the admin API engine on top of the order desk.
var Module = fx.Options(
	fx.Provide(func(desk *app.OrderDesk) handlers.OrderDeskFacade { return desk }),
	fx.Provide(Setup),
)
