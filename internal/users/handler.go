package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/internal/models"
	"github.com/progreview/progreview-api/pkg/logger"
	"github.com/progreview/progreview-api/pkg/middleware"
)

// Handler exposes the user management routes.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Register mounts the routes on an authenticated group. admin guards the
// management routes; /v1/me is open to every authenticated caller.
func (h *Handler) Register(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/v1/me", h.me)
	rg.POST("/user", admin, h.create)
	rg.GET("/users", admin, h.list)
	rg.GET("/user/:user_id", admin, h.get)
	rg.PATCH("/user/:user_id", admin, h.update)
	rg.DELETE("/user/:user_id", admin, h.delete)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, errs.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	case errors.Is(err, errs.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("user request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) me(c *gin.Context) {
	ctx := c.Request.Context()
	sub := middleware.Subject(c)
	u, err := h.svc.Get(ctx, sub)
	if errors.Is(err, errs.ErrNotFound) {
		// federated callers are keyed by their OIDC subject
		u, err = h.svc.UpsertFromClaims(ctx, middleware.Claims(c))
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusOK, gin.H{"claims": middleware.Claims(c)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Create(c.Request.Context(), in, actionlog.ActorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u.Public())
}

func (h *Handler) list(c *gin.Context) {
	us, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]models.PublicUser, 0, len(us))
	for _, u := range us {
		out = append(out, u.Public())
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Update(c.Request.Context(), c.Param("user_id"), in, actionlog.ActorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("user_id"), actionlog.ActorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
