package department

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/pkg/logger"
)

// RegisterRoutes mounts the department and program routes on rg. Every
// route is administrator-only; rg is expected to enforce that.
func RegisterRoutes(rg *gin.RouterGroup, svc *Service) {
	rg.POST("/department", func(c *gin.Context) {
		var in DepartmentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		d, err := svc.CreateDepartment(c.Request.Context(), in, actionlog.ActorFrom(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	})

	rg.GET("/departments", func(c *gin.Context) {
		list, err := svc.ListDepartments(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.GET("/department/:department_id", func(c *gin.Context) {
		d, err := svc.GetDepartment(c.Request.Context(), c.Param("department_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	rg.PATCH("/department/:department_id", func(c *gin.Context) {
		var in DepartmentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		d, err := svc.UpdateDepartment(c.Request.Context(), c.Param("department_id"), in, actionlog.ActorFrom(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	rg.DELETE("/department/:department_id", func(c *gin.Context) {
		if err := svc.DeleteDepartment(c.Request.Context(), c.Param("department_id"), actionlog.ActorFrom(c)); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.GET("/department/:department_id/programs", func(c *gin.Context) {
		list, err := svc.ListDepartmentPrograms(c.Request.Context(), c.Param("department_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.POST("/program", func(c *gin.Context) {
		var in ProgramInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		p, err := svc.CreateProgram(c.Request.Context(), in, actionlog.ActorFrom(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	})

	rg.GET("/programs", func(c *gin.Context) {
		list, err := svc.ListPrograms(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.GET("/program/:program_id", func(c *gin.Context) {
		p, err := svc.GetProgram(c.Request.Context(), c.Param("program_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	rg.PATCH("/program/:program_id", func(c *gin.Context) {
		var in ProgramInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		p, err := svc.UpdateProgram(c.Request.Context(), c.Param("program_id"), in, actionlog.ActorFrom(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	rg.DELETE("/program/:program_id", func(c *gin.Context) {
		if err := svc.DeleteProgram(c.Request.Context(), c.Param("program_id"), actionlog.ActorFrom(c)); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrHasDependents):
		c.JSON(http.StatusBadRequest, gin.H{"error": "department still has programs"})
	case errors.Is(err, errs.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("department request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
