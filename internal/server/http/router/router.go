package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderdesk/internal/server/http/handlers"
	"github.com/polkiloo/orderdesk/internal/server/http/middleware"
)

// maxRequestBody caps inflated request bodies.
const maxRequestBody = 1 << 20

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.OrderDeskFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest(maxRequestBody))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	invoiceHandler := handlers.NewInvoiceHandler(facade)
	reminderHandler := handlers.NewReminderHandler(facade)
	settingsHandler := handlers.NewSettingsHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)

	api := engine.Group("/api")
	api.POST("/auth/login", authHandler.Login)
	api.POST("/webhooks/payments", webhookHandler.Payments)

	staff := api.Group("")
	staff.Use(middleware.AuthRequired(facade))
	staff.POST("/users", authHandler.CreateUser)

	staff.POST("/orders", orderHandler.Create)
	staff.POST("/orders/bulk-transition", orderHandler.BulkTransition)
	staff.GET("/orders/:id", orderHandler.Get)
	staff.GET("/orders/:id/history", orderHandler.History)
	staff.GET("/orders/:id/transitions", orderHandler.Transitions)
	staff.POST("/orders/:id/transition", orderHandler.Transition)
	staff.GET("/statuses/:status/transitions", orderHandler.StatusTransitions)

	staff.POST("/orders/:id/invoice", invoiceHandler.Create)
	staff.GET("/orders/:id/invoice", invoiceHandler.Get)
	staff.GET("/orders/:id/payments", invoiceHandler.Payments)
	staff.POST("/orders/:id/mark-paid", invoiceHandler.MarkPaid)
	staff.POST("/orders/:id/manual-complete", invoiceHandler.ManualComplete)
	staff.GET("/invoices/aging", invoiceHandler.Aging)

	staff.POST("/orders/:id/reminders/pause", reminderHandler.Pause)
	staff.POST("/orders/:id/reminders/resume", reminderHandler.Resume)
	staff.GET("/reminders/pending", reminderHandler.Pending)
	staff.POST("/reminders/process", reminderHandler.Process)

	staff.GET("/settings/tax", settingsHandler.GetTax)
	staff.PUT("/settings/tax", settingsHandler.PutTax)
	staff.GET("/settings/invoice", settingsHandler.GetInvoice)
	staff.PUT("/settings/invoice", settingsHandler.PutInvoice)
	staff.GET("/settings/reminders", settingsHandler.GetReminder)
	staff.PUT("/settings/reminders", settingsHandler.PutReminder)
	staff.GET("/tax/calculate", settingsHandler.Calculate)
	staff.GET("/tax/reverse", settingsHandler.Reverse)

	return engine
}
