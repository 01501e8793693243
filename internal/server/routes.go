package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/catalog"
	"github.com/zulandar/stratum/internal/logger"
	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/store"
	"gorm.io/gorm"
)

type handlers struct {
	db  *gorm.DB
	log *logger.Logger
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	api := router.Group("/api")

	api.GET("/projects/:project/assemblies", h.listAssemblies)
	api.POST("/projects/:project/assemblies", h.createAssembly)

	api.GET("/assemblies/:id", h.getAssembly)
	api.PATCH("/assemblies/:id", h.updateAssembly)
	api.DELETE("/assemblies/:id", h.deleteAssembly)
	api.POST("/assemblies/:id/flip", h.flipAssembly)
	api.POST("/assemblies/:id/layers", h.createLayer)

	api.PATCH("/layers/:id", h.updateLayer)
	api.DELETE("/layers/:id", h.deleteLayer)
	api.POST("/layers/:id/segments", h.createSegment)

	api.PATCH("/segments/:id", h.updateSegment)
	api.DELETE("/segments/:id", h.deleteSegment)
	api.GET("/segments/:id/attachments", h.attachments)
	api.POST("/segments/:id/attachments", h.addAttachment)

	api.GET("/catalog/:key", h.getCatalog)
}

// statusFor maps a store or domain error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, assembly.ErrNotFound),
		errors.Is(err, catalog.ErrUnknownCatalog):
		return http.StatusNotFound
	case errors.Is(err, assembly.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// bind decodes the JSON body into v and answers 400 when that fails.
func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *handlers) listAssemblies(c *gin.Context) {
	list, err := store.ListAssemblies(h.db, c.Param("project"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) createAssembly(c *gin.Context) {
	var req models.AssemblyCreate
	if !bind(c, &req) {
		return
	}
	a, err := store.CreateAssembly(h.db, c.Param("project"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("assembly created", "id", a.ID, "project", a.ProjectID)
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) getAssembly(c *gin.Context) {
	a, err := store.GetAssembly(h.db, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handlers) updateAssembly(c *gin.Context) {
	var patch models.AssemblyPatch
	if !bind(c, &patch) {
		return
	}
	a, err := store.UpdateAssembly(h.db, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handlers) deleteAssembly(c *gin.Context) {
	if err := store.DeleteAssembly(h.db, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("assembly deleted", "id", c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *handlers) flipAssembly(c *gin.Context) {
	var req models.FlipRequest
	if !bind(c, &req) {
		return
	}
	a, err := store.FlipAssembly(h.db, c.Param("id"), req.Mode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handlers) createLayer(c *gin.Context) {
	var req models.LayerCreate
	if !bind(c, &req) {
		return
	}
	l, err := store.CreateLayer(h.db, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *handlers) updateLayer(c *gin.Context) {
	var patch models.LayerPatch
	if !bind(c, &patch) {
		return
	}
	l, err := store.UpdateLayer(h.db, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *handlers) deleteLayer(c *gin.Context) {
	if err := store.DeleteLayer(h.db, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createSegment(c *gin.Context) {
	var req models.SegmentCreate
	if !bind(c, &req) {
		return
	}
	s, err := store.CreateSegment(h.db, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *handlers) updateSegment(c *gin.Context) {
	var patch models.SegmentPatch
	if !bind(c, &patch) {
		return
	}
	s, err := store.UpdateSegment(h.db, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handlers) deleteSegment(c *gin.Context) {
	if err := store.DeleteSegment(h.db, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) attachments(c *gin.Context) {
	att, err := store.SegmentAttachments(h.db, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, att)
}

func (h *handlers) addAttachment(c *gin.Context) {
	var req models.AttachmentCreate
	if !bind(c, &req) {
		return
	}
	att, err := store.AddAttachment(h.db, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (h *handlers) getCatalog(c *gin.Context) {
	rows, err := store.Catalog(h.db, c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
