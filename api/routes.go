package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/relaykit/mailrelay/api/handlers"
	"github.com/relaykit/mailrelay/api/middleware"
	"github.com/relaykit/mailrelay/internal/repository"
	"github.com/relaykit/mailrelay/internal/tracing"
	"github.com/relaykit/mailrelay/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// setup handlers
	apiHandlers := handlers.InitHandlers(repos, s.RelayService)

	// Health check endpoint (no auth)
	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILRELAY-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	{
		// Account endpoints
		accounts := api.Group("/accounts")
		{
			accounts.GET("", apiHandlers.Accounts.List())
			accounts.POST("", apiHandlers.Accounts.Add())
			accounts.GET("/:email", apiHandlers.Accounts.Get())
			accounts.DELETE("/:email", apiHandlers.Accounts.Remove())
			accounts.POST("/:email/enable", apiHandlers.Accounts.SetActive(true))
			accounts.POST("/:email/disable", apiHandlers.Accounts.SetActive(false))
			accounts.GET("/:email/status", apiHandlers.Accounts.Status())
		}

		// Cycle endpoints
		cycles := api.Group("/cycles")
		{
			cycles.POST("", apiHandlers.Cycles.RunAll())
			cycles.POST("/:email", apiHandlers.Cycles.RunForAccount())
		}
	}
}
