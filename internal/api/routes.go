package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/cache"
	"github.com/JustJay7/gosomi-court/internal/court"
	"github.com/JustJay7/gosomi-court/internal/lawcode"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, cache cache.Cache, law lawcode.Provider, svc *court.Service, logger *logger.Logger) {
	h := NewHandlers(db, cache, law, svc, logger)

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		// Users
		api.POST("/users", h.CreateUser)
		api.GET("/users/:id", h.GetUser)
		api.GET("/users/:id/cases", h.UserCases)
		api.GET("/users/:id/notifications", h.UserNotifications)

		// Case lifecycle
		api.POST("/cases", h.CreateCase)
		api.GET("/cases/:id", h.GetCase)
		api.POST("/cases/:id/defense", h.SubmitDefense)
		api.POST("/cases/:id/verdict", h.RequestVerdict)
		api.GET("/cases/:id/jury", h.Jury)
		api.POST("/cases/:id/jury/vote", h.Vote)
		api.POST("/cases/:id/penalty", h.SelectPenalty)

		// Appeal
		api.POST("/cases/:id/appeal", h.RequestAppeal)
		api.POST("/cases/:id/appeal/defense", h.AppealDefense)
		api.POST("/cases/:id/appeal/verdict", h.AppealVerdict)

		// Summons
		api.POST("/cases/:id/summon", h.IssueSummons)
		api.POST("/summons/:token/defense", h.SubmitDefenseByToken)
	}
}
