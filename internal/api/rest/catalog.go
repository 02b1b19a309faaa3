package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/KevinKickass/OpenBoardCore/internal/catalog"
	"github.com/KevinKickass/OpenBoardCore/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/v1/catalog/boards
func (s *Server) listCatalogBoards(c *gin.Context) {
	defs := s.lm.Catalog().Definitions()

	result := make([]gin.H, 0, len(defs))
	for _, def := range defs {
		result = append(result, gin.H{
			"id":           def.Board.ID,
			"name":         def.Board.Name,
			"fqbn":         def.Board.FQBN,
			"vendor":       def.Board.Vendor,
			"architecture": def.Board.Architecture,
			"default_fqbn": catalog.DefaultFQBN(def),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"boards": result,
		"count":  len(result),
	})
}

// GET /api/v1/catalog/boards/:fqbn
func (s *Server) getCatalogBoard(c *gin.Context) {
	fqbn := c.Param("fqbn")
	cat := s.lm.Catalog()

	def, err := cat.ByFQBN(fqbn)
	if err != nil {
		if errors.Is(err, catalog.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeCatalogNotFound, "Board not found", fqbn))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeCatalogFailed, "Failed to look up board", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"definition":   def,
		"default_fqbn": catalog.DefaultFQBN(def),
		"source":       cat.Source(def.Board.FQBN),
	})
}

// GET /api/v1/catalog/vendors
func (s *Server) listVendors(c *gin.Context) {
	indexes := s.lm.Catalog().Vendors()

	vendors := make([]gin.H, 0, len(indexes))
	for _, index := range indexes {
		vendors = append(vendors, gin.H{
			"vendor":      index.Vendor,
			"description": index.Description,
			"website":     index.Website,
			"board_count": index.BoardCount(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"vendors": vendors,
		"count":   len(vendors),
	})
}

// GET /api/v1/catalog/vendors/:vendor
func (s *Server) getVendor(c *gin.Context) {
	vendor := c.Param("vendor")

	for _, index := range s.lm.Catalog().Vendors() {
		if strings.EqualFold(index.Vendor, vendor) {
			c.JSON(http.StatusOK, index)
			return
		}
	}

	s.logger.Debug("Vendor not found", zap.String("vendor", vendor))
	c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeCatalogNotFound, "Vendor not found", vendor))
}
