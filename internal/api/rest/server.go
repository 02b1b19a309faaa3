package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/api/websocket"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/interfaces"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	logger *zap.Logger
	server *http.Server
	wsHub  *websocket.Hub
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) *Server {
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router: gin.New(),
		lm:     lm,
		logger: logger,
		wsHub:  wsHub,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, for serving without Start.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		boardList := v1.Group("/boardlist")
		{
			boardList.GET("", s.getBoardList)
			boardList.GET("/boards", s.getBoards)
		}

		ports := v1.Group("/ports")
		{
			ports.GET("", s.getPorts)
			ports.GET("/grouped", s.getGroupedPorts)
			ports.GET("/lookup", s.lookupPort)
		}

		selection := v1.Group("/selection")
		{
			selection.GET("", s.getSelection)
			selection.PUT("", s.putSelection)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/boards", s.listCatalogBoards)
			catalog.GET("/boards/:fqbn", s.getCatalogBoard)
			catalog.GET("/vendors", s.listVendors)
			catalog.GET("/vendors/:vendor", s.getVendor)
		}

		history := v1.Group("/history")
		{
			history.GET("", s.listHistory)
			history.DELETE("", s.deleteHistory)
		}

		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
			system.POST("/rescan", s.rescan)
			system.POST("/shutdown", s.shutdown)
		}

		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
