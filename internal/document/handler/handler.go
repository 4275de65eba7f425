package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/document"
	"github.com/progreview/progreview-api/internal/document/service"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/pkg/logger"
	"github.com/progreview/progreview-api/pkg/middleware"
)

// multipartOverhead is allowed on top of the file size limit for part headers and boundaries.
const multipartOverhead = 1 << 20

// RegisterDocumentRoutes mounts the document, revision and comment routes on
// rg, which is expected to be authenticated. maxFileSize bounds upload bodies.
func RegisterDocumentRoutes(rg *gin.RouterGroup, svc service.Service, maxFileSize int64) {
	h := &handler{svc: svc, maxFileSize: maxFileSize}

	rg.GET("/documents", h.list)
	rg.POST("/document", h.create)
	rg.GET("/document/:document_id", h.get)
	rg.PATCH("/document/:document_id", h.update)
	rg.DELETE("/document/:document_id", h.delete)

	rg.POST("/document/:document_id/revision", h.addRevision)
	rg.DELETE("/document/:document_id/revision/:revision", h.deleteRevision)
	rg.GET("/document/:document_id/revision/:revision/file", h.downloadFile)
	rg.POST("/document/:document_id/revision/:revision/file", h.uploadFile)

	rg.GET("/document/:document_id/comment", h.listComments)
	rg.POST("/document/:document_id/comment", h.addComment)
	rg.DELETE("/document/:document_id/comment/:comment_id", h.deleteComment)
}

type handler struct {
	svc         service.Service
	maxFileSize int64
}

// writeError maps service errors to statuses. fileRoute selects 404 for an
// invalid revision index, as the file routes address the revision as a resource.
func writeError(c *gin.Context, err error, fileRoute bool) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, document.ErrInvalidRevision):
		if fileRoute {
			c.JSON(http.StatusNotFound, gin.H{"error": "revision not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge), errors.As(err, &maxErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("document request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *handler) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) create(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Create(c.Request.Context(), req.Title)
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("document_id"))
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, d)
}

// update accepts only "title" and "currentRevision"; any other key is a 400.
func (h *handler) update(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var in service.UpdateInput
	for key, raw := range body {
		switch key {
		case "title":
			var t string
			if err := json.Unmarshal(raw, &t); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "title must be a string"})
				return
			}
			in.Title = &t
		case "currentRevision":
			var i int
			if err := json.Unmarshal(raw, &i); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "currentRevision must be an integer"})
				return
			}
			in.CurrentRevision = &i
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported field " + strconv.Quote(key)})
			return
		}
	}
	d, err := h.svc.Update(c.Request.Context(), c.Param("document_id"), in)
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("document_id")); err != nil {
		writeError(c, err, false)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) addRevision(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.AddRevision(c.Request.Context(), c.Param("document_id"), req.Message, actionlog.ActorFrom(c))
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func revisionParam(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("revision"))
	return i, err == nil
}

func (h *handler) deleteRevision(c *gin.Context) {
	idx, ok := revisionParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "revision must be an integer"})
		return
	}
	if err := h.svc.DeleteRevision(c.Request.Context(), c.Param("document_id"), idx, actionlog.ActorFrom(c)); err != nil {
		writeError(c, err, false)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) downloadFile(c *gin.Context) {
	idx, ok := revisionParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "revision not found"})
		return
	}
	f, err := h.svc.OpenRevisionFile(c.Request.Context(), c.Param("document_id"), idx)
	if err != nil {
		writeError(c, err, true)
		return
	}
	defer f.Body.Close()

	username := middleware.Username(c)
	if username == "" {
		username = middleware.Subject(c)
	}
	contentType := mime.TypeByExtension(f.Extension)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.DownloadName(username)})
	c.DataFromReader(http.StatusOK, -1, contentType, f.Body, map[string]string{"Content-Disposition": disposition})
}

func (h *handler) uploadFile(c *gin.Context) {
	idx, ok := revisionParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "revision not found"})
		return
	}
	if h.maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+multipartOverhead)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, err, true)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	src, err := fh.Open()
	if err != nil {
		writeError(c, err, true)
		return
	}
	defer src.Close()

	up := service.Upload{
		OriginalName: fh.Filename,
		Size:         fh.Size,
		ContentType:  fh.Header.Get("Content-Type"),
		Body:         src,
	}
	if _, err := h.svc.AttachFile(c.Request.Context(), c.Param("document_id"), idx, up, actionlog.ActorFrom(c)); err != nil {
		writeError(c, err, true)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handler) listComments(c *gin.Context) {
	list, err := h.svc.ListComments(c.Request.Context(), c.Param("document_id"))
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) addComment(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cm, err := h.svc.AddComment(c.Request.Context(), c.Param("document_id"), middleware.Subject(c), req.Body)
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *handler) deleteComment(c *gin.Context) {
	if err := h.svc.DeleteComment(c.Request.Context(), c.Param("document_id"), c.Param("comment_id")); err != nil {
		writeError(c, err, false)
		return
	}
	c.Status(http.StatusNoContent)
}
