package actionlog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/pkg/logger"
	"github.com/progreview/progreview-api/pkg/middleware"
)

// ActorFrom builds the actor of an authenticated request from its claims.
func ActorFrom(c *gin.Context) Actor {
	return Actor{ID: middleware.Subject(c), Username: middleware.Username(c)}
}

// RegisterRoutes mounts GET /actions?page=N on rg. Access control is applied
// by the caller's group middleware.
func RegisterRoutes(rg *gin.RouterGroup, svc *Service) {
	rg.GET("/actions", func(c *gin.Context) {
		page := 0
		if raw := c.Query("page"); raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil || p < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a non-negative integer"})
				return
			}
			page = p
		}
		list, err := svc.List(c.Request.Context(), page)
		if err != nil {
			logger.Errorf("Error fetching actions page %d: %v", page, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list actions"})
			return
		}
		c.JSON(http.StatusOK, list)
	})
}
