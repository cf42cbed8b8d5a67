package devserver

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Response is the uniform envelope of every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler serves the class and section endpoints over a Store.
type Handler struct {
	Store *Store
}

// NewServer builds an echo instance with the routes mounted under prefix
// (e.g. "/api"; empty mounts at the root).
func NewServer(store *Store, prefix string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	h := &Handler{Store: store}
	g := e.Group(strings.TrimRight(prefix, "/"))
	g.GET("/classes", h.ListClasses)
	g.PUT("/classes", h.RenameClass)
	g.DELETE("/classes", h.DeleteClass)
	g.GET("/sections", h.ListSections)
	g.POST("/sections", h.CreateSection)
	g.PUT("/sections", h.UpdateSection)
	g.DELETE("/sections", h.DeleteSection)
	return e
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

// failFor maps a store error to a status code and strips the sentinel prefix
// so the operator sees only the reason.
func failFor(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var sentinel error
	switch {
	case errors.Is(err, ErrNotFound):
		status, sentinel = http.StatusNotFound, ErrNotFound
	case errors.Is(err, ErrConflict):
		status, sentinel = http.StatusConflict, ErrConflict
	case errors.Is(err, ErrInvalid):
		status, sentinel = http.StatusBadRequest, ErrInvalid
	}
	if sentinel == nil {
		log.Printf("devserver: %s %s: %v", c.Request().Method, c.Path(), err)
		return fail(c, status, "internal error")
	}
	return fail(c, status, strings.TrimPrefix(err.Error(), sentinel.Error()+": "))
}

// ListClasses handles GET /classes.
func (h *Handler) ListClasses(c echo.Context) error {
	classes, err := h.Store.ListClasses(c.Request().Context())
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, http.StatusOK, classes)
}

// RenameClass handles PUT /classes with {class_id, class_name}.
func (h *Handler) RenameClass(c echo.Context) error {
	var body struct {
		ClassID   int64  `json:"class_id"`
		ClassName string `json:"class_name"`
	}
	if err := c.Bind(&body); err != nil || body.ClassID == 0 {
		return fail(c, http.StatusBadRequest, "class_id and class_name are required")
	}
	cls, err := h.Store.RenameClass(c.Request().Context(), body.ClassID, body.ClassName)
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, http.StatusOK, cls)
}

// DeleteClass handles DELETE /classes with {class_id}.
func (h *Handler) DeleteClass(c echo.Context) error {
	var body struct {
		ClassID int64 `json:"class_id"`
	}
	if err := c.Bind(&body); err != nil || body.ClassID == 0 {
		return fail(c, http.StatusBadRequest, "class_id is required")
	}
	if err := h.Store.DeleteClass(c.Request().Context(), body.ClassID); err != nil {
		return failFor(c, err)
	}
	return c.JSON(http.StatusOK, Response{Success: true, Message: "class deleted"})
}

// ListSections handles GET /sections?class_id=<id>.
func (h *Handler) ListSections(c echo.Context) error {
	classID, err := strconv.ParseInt(c.QueryParam("class_id"), 10, 64)
	if err != nil || classID <= 0 {
		return fail(c, http.StatusBadRequest, "class_id query parameter is required")
	}
	sections, err := h.Store.ListSections(c.Request().Context(), classID)
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, http.StatusOK, sections)
}

type sectionBody struct {
	SectionID   int64  `json:"section_id"`
	ClassID     int64  `json:"class_id"`
	SectionName string `json:"section_name"`
	Capacity    int    `json:"capacity"`
}

// CreateSection handles POST /sections with {class_id, section_name, capacity}.
func (h *Handler) CreateSection(c echo.Context) error {
	var body sectionBody
	if err := c.Bind(&body); err != nil || body.ClassID == 0 {
		return fail(c, http.StatusBadRequest, "class_id, section_name and capacity are required")
	}
	sec, err := h.Store.CreateSection(c.Request().Context(), body.ClassID, body.SectionName, body.Capacity)
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, http.StatusCreated, sec)
}

// UpdateSection handles PUT /sections with {section_id, class_id, section_name, capacity}.
func (h *Handler) UpdateSection(c echo.Context) error {
	var body sectionBody
	if err := c.Bind(&body); err != nil || body.SectionID == 0 {
		return fail(c, http.StatusBadRequest, "section_id, section_name and capacity are required")
	}
	sec, err := h.Store.UpdateSection(c.Request().Context(), body.SectionID, body.ClassID, body.SectionName, body.Capacity)
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, http.StatusOK, sec)
}

// DeleteSection handles DELETE /sections with {section_id}.
func (h *Handler) DeleteSection(c echo.Context) error {
	var body struct {
		SectionID int64 `json:"section_id"`
	}
	if err := c.Bind(&body); err != nil || body.SectionID == 0 {
		return fail(c, http.StatusBadRequest, "section_id is required")
	}
	if err := h.Store.DeleteSection(c.Request().Context(), body.SectionID); err != nil {
		return failFor(c, err)
	}
	return c.JSON(http.StatusOK, Response{Success: true, Message: "section deleted"})
}
