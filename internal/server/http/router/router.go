package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/handlers"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.DeskFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	letterHandler := handlers.NewLetterHandler(facade)
	allowanceHandler := handlers.NewAllowanceHandler(facade)
	reviewHandler := handlers.NewReviewHandler(facade)
	auditHandler := handlers.NewAuditHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade)

	api := engine.Group("/api")
	api.Use(middleware.Authenticate(facade, facade))

	subscriber := api.Group("")
	subscriber.Use(middleware.RequireCapability(model.CapabilitySubscriber))
	subscriber.GET("/allowance", allowanceHandler.Check)
	subscriber.POST("/allowance/deduct", allowanceHandler.Deduct)
	subscriber.POST("/letters", letterHandler.Create)
	subscriber.GET("/letters", letterHandler.List)
	subscriber.POST("/letters/:id/submit", letterHandler.Submit)
	subscriber.POST("/letters/:id/resubmit", letterHandler.Resubmit)

	// Owners and reviewers both read letters and queue positions.
	api.GET("/letters/:id", letterHandler.Get)
	api.GET("/letters/:id/position", letterHandler.Position)

	review := api.Group("/review")
	review.Use(middleware.RequireCapability(model.CapabilityReviewer, model.CapabilitySystem))
	review.POST("/next", reviewHandler.Next)
	review.GET("/queue", reviewHandler.Queue)
	review.GET("/letters/:id/priority", reviewHandler.Priority)
	review.POST("/letters/:id/approve", reviewHandler.Approve)
	review.POST("/letters/:id/reject", reviewHandler.Reject)
	review.POST("/letters/:id/complete", reviewHandler.Complete)
	review.POST("/letters/:id/audit", auditHandler.Log)
	review.GET("/letters/:id/audit", auditHandler.History)
	review.GET("/audit", auditHandler.Range)

	admin := api.Group("/admin")
	admin.POST("/allowance/reset", middleware.RequireCapability(model.CapabilityReviewer, model.CapabilitySystem), adminHandler.Reset)
	admin.POST("/accounts", middleware.RequireCapability(model.CapabilitySystem), adminHandler.Activate)
	admin.POST("/tokens", middleware.RequireCapability(model.CapabilitySystem), adminHandler.IssueToken)

	return engine
}
