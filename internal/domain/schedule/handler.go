package schedule

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dentalink/clinic/internal/platform/auth"
)

// Handler exposes the day view and the gesture commits over HTTP. Each
// request builds a fresh engine for the requested clinic and date: commits
// are terminal pointer-up events, so there is no server-side gesture state
// to keep between requests.
type Handler struct {
	deps EngineDeps
	log  zerolog.Logger
}

func NewHandler(deps EngineDeps) *Handler {
	return &Handler{deps: deps, log: deps.Logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/schedule", auth.RequireRole("admin", "clinic", "staff"))
	g.GET("/day", h.DayView)
	g.POST("/appointments", h.CreateAppointment)
	g.POST("/appointments/:id/move", h.MoveAppointment)
	g.POST("/appointments/:id/resize", h.ResizeAppointment)
}

func (h *Handler) engineFor(c echo.Context) (*Engine, error) {
	clinicID, err := uuid.Parse(c.QueryParam("clinic_id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid clinic_id")
	}
	dateStr := c.QueryParam("date")
	if dateStr == "" {
		dateStr = time.Now().Format("2006-01-02")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}
	eng := NewEngine(clinicID, h.deps)
	if err := eng.Load(c.Request().Context(), date); err != nil {
		h.log.Error().Err(err).Str("date", dateStr).Msg("loading day view failed")
		return nil, echo.NewHTTPError(http.StatusBadGateway, "failed to load schedule")
	}
	return eng, nil
}

// DayView returns the rendering-ready grid for one clinic day.
func (h *Handler) DayView(c echo.Context) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eng.View())
}

// CreateAppointment commits a new appointment seeded from a completed slot
// selection.
func (h *Handler) CreateAppointment(c echo.Context) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := eng.CreateFromSelection(c.Request().Context(), req)
	if err != nil {
		return commitError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

type moveRequest struct {
	Start     string `json:"start_time"`
	Confirmed bool   `json:"confirmed"`
}

// MoveAppointment commits a drag-to-move.
func (h *Handler) MoveAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	eng, err := h.engineFor(c)
	if err != nil {
		return err
	}
	var req moveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := eng.CommitMove(c.Request().Context(), id, req.Start, req.Confirmed); err != nil {
		return commitError(err)
	}
	return c.JSON(http.StatusOK, eng.View())
}

type resizeRequest struct {
	End       string `json:"end_time"`
	Confirmed bool   `json:"confirmed"`
}

// ResizeAppointment commits a drag-to-resize.
func (h *Handler) ResizeAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	eng, err := h.engineFor(c)
	if err != nil {
		return err
	}
	var req resizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := eng.CommitResize(c.Request().Context(), id, req.End, req.Confirmed); err != nil {
		return commitError(err)
	}
	return c.JSON(http.StatusOK, eng.View())
}

// commitError maps the engine's error taxonomy onto HTTP statuses. Conflicts
// and unconfirmed break overlaps are both 409 but carry distinct codes so
// the client knows whether a confirmation dialog can resolve it.
func commitError(err error) error {
	var ce *ConflictError
	switch {
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, map[string]string{
			"code":    "conflict",
			"message": ce.Error(),
			"window":  ce.Other.Start + "-" + ce.Other.End,
		})
	case errors.Is(err, ErrNeedsConfirmation):
		return echo.NewHTTPError(http.StatusConflict, map[string]string{
			"code":    "needs_confirmation",
			"message": err.Error(),
		})
	case errors.Is(err, ErrNotSlotAligned):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]string{
			"code":    "not_slot_aligned",
			"message": err.Error(),
		})
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
