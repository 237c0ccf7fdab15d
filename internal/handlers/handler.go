package handlers

import (
	"espresso_panel/internal/logger"
	"espresso_panel/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler adapts the panel services to HTTP and the event stream.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Presentation Layer event stream
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdMiddleware)
	{
		h.registerBrewRoutes(api)
		h.registerSettingsRoutes(api)
		h.registerHistoryRoutes(api)
	}
}

func (h *Handler) registerBrewRoutes(api *gin.RouterGroup) {
	brew := api.Group("/brew")
	{
		brew.GET("/state", h.getBrewState)
		// Body: {"checked": true}
		brew.POST("/toggle", h.toggleBrew)
		brew.POST("/reset", h.resetBrew)
		// Body: {"enabled": true}
		brew.POST("/steam", h.setSteam)
	}
	api.POST("/pump/manual", h.setManualPump)
}

func (h *Handler) registerSettingsRoutes(api *gin.RouterGroup) {
	s := api.Group("/settings")
	{
		s.GET("", h.listSettings)
		s.PUT("/:key", h.putSetting)
	}
}

func (h *Handler) registerHistoryRoutes(api *gin.RouterGroup) {
	api.GET("/shots", h.listShots)
	api.GET("/logs", h.getLogs)
}
