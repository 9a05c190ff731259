package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "surplus-relay.com/surplus-relay/internal/data_models"
	"surplus-relay.com/surplus-relay/internal/services"
)

func (h *Handler) GetTask(c echo.Context) error {
	task, err := h.dispatch.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) AssignCarrier(c echo.Context) error {
	var req dto.AssignCarrierRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	task, err := h.dispatch.AssignCarrier(c.Request().Context(), c.Param("id"), mustActor(c).ID,
		services.AssignOptions{Volunteer: req.Volunteer})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) MarkPickedUp(c echo.Context) error {
	task, err := h.dispatch.MarkPickedUp(c.Request().Context(), c.Param("id"), mustActor(c).ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) MarkDelivered(c echo.Context) error {
	task, err := h.dispatch.MarkDelivered(c.Request().Context(), c.Param("id"), mustActor(c).ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) ReleaseCarrier(c echo.Context) error {
	task, err := h.dispatch.ReleaseCarrier(c.Request().Context(), c.Param("id"), mustActor(c).ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) CarrierStats(c echo.Context) error {
	stats, err := h.dispatch.CarrierStats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) CarrierTasks(c echo.Context) error {
	tasks, err := h.dispatch.TasksForCarrier(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count": len(tasks),
		"tasks": tasks,
	})
}
