package rest

import (
	"context"
	"net/http"

	"github.com/KevinKickass/OpenBoardCore/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	status := s.lm.GetCurrentStatus()
	c.JSON(http.StatusOK, status)
}

// POST /api/v1/system/rescan
func (s *Server) rescan(c *gin.Context) {
	changed, err := s.lm.Rescan(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(types.CodeSystemUnavailable, "Rescan failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changed":  changed,
		"revision": s.lm.Provider().Current().Revision.String(),
	})
}

// POST /api/v1/system/shutdown
func (s *Server) shutdown(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Shutdown initiated",
	})

	// The request context ends with this handler.
	timeout := s.lm.Config().Server.ShutdownTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.lm.Shutdown(ctx); err != nil {
			s.logger.Error("Shutdown failed", zap.Error(err))
		}
	}()
}
