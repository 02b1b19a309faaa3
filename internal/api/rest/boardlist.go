package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/provider"
	"github.com/KevinKickass/OpenBoardCore/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/v1/boardlist
func (s *Server) getBoardList(c *gin.Context) {
	current := s.lm.Provider().Current()
	list := current.List

	c.JSON(http.StatusOK, gin.H{
		"revision":       current.Revision.String(),
		"sequence":       current.Sequence,
		"items":          list.Items(),
		"selected_index": list.SelectedIndex(),
		"boards_config":  list.BoardsConfig(),
	})
}

// GET /api/v1/boardlist/boards
func (s *Server) getBoards(c *gin.Context) {
	items := s.lm.Provider().BoardList().Boards()
	c.JSON(http.StatusOK, gin.H{
		"boards": items,
		"count":  len(items),
	})
}

// GET /api/v1/ports?visible=true
func (s *Server) getPorts(c *gin.Context) {
	var predicate func(boards.DetectedPort) bool
	if raw := c.Query("visible"); raw != "" {
		visible, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodePortsInvalid, "Invalid visible parameter", err.Error()))
			return
		}
		if visible {
			predicate = boards.IsVisiblePort
		}
	}

	c.JSON(http.StatusOK, s.lm.Provider().BoardList().Ports(predicate))
}

// GET /api/v1/ports/grouped
func (s *Server) getGroupedPorts(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.Provider().BoardList().PortsGroupedByProtocol())
}

// GET /api/v1/ports/lookup?protocol=serial&address=/dev/ttyACM0
func (s *Server) lookupPort(c *gin.Context) {
	id := boards.PortIdentifier{
		Protocol: c.Query("protocol"),
		Address:  c.Query("address"),
	}
	if id.Protocol == "" || id.Address == "" {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodePortsInvalid, "protocol and address are required", nil))
		return
	}

	dp, err := s.lm.Provider().DetectedPort(id)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownPort) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodePortNotFound, "Port not detected", id.Key()))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodePortLookupFailed, "Failed to look up port", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":           id.Key(),
		"detected_port": dp,
		"visible":       boards.IsVisiblePort(dp),
	})
}

// GET /api/v1/selection
func (s *Server) getSelection(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.Provider().BoardsConfig())
}

// PUT /api/v1/selection
func (s *Server) putSelection(c *gin.Context) {
	var req boards.BoardsConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSelectionInvalid, "Invalid request body", err.Error()))
		return
	}
	if req.SelectedBoard != nil && req.SelectedBoard.Name == "" {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSelectionInvalid, "selected_board.name is required", nil))
		return
	}
	if req.SelectedPort != nil && (req.SelectedPort.Protocol == "" || req.SelectedPort.Address == "") {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSelectionInvalid, "selected_port.protocol and selected_port.address are required", nil))
		return
	}

	p := s.lm.Provider()
	if err := p.Select(c.Request.Context(), req); err != nil {
		s.logger.Error("Failed to update selection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeSelectionFailed, "Failed to update selection", err.Error()))
		return
	}

	list := p.BoardList()
	c.JSON(http.StatusOK, gin.H{
		"boards_config":  list.BoardsConfig(),
		"selected_index": list.SelectedIndex(),
	})
}
