package rest

import (
	"errors"
	"net/http"

	"github.com/KevinKickass/OpenBoardCore/internal/storage"
	"github.com/KevinKickass/OpenBoardCore/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/v1/history
func (s *Server) listHistory(c *gin.Context) {
	entries, err := s.lm.Provider().HistoryEntries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeHistoryFailed, "Failed to read history", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// DELETE /api/v1/history?key=arduino+serial:///dev/ttyACM0
func (s *Server) deleteHistory(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeHistoryInvalid, "key is required", nil))
		return
	}

	if err := s.lm.Provider().ForgetPort(c.Request.Context(), key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeHistoryNotFound, "No history entry for port", key))
			return
		}
		s.logger.Error("Failed to delete history entry", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeHistoryFailed, "Failed to delete history entry", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "history entry deleted", "key": key})
}
