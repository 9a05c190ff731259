package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "surplus-relay.com/surplus-relay/internal/data_models"
	"surplus-relay.com/surplus-relay/internal/http/validators"
	"surplus-relay.com/surplus-relay/internal/services"
)

func (h *Handler) CreateItem(c echo.Context) error {
	var req dto.CreateItemRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateCreateItemRequest(&req); err != nil {
		return err
	}

	item, err := h.claims.CreateItem(c.Request().Context(), mustActor(c).ID, services.NewItem{
		Title:     req.Title,
		Category:  req.Category,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Location:  req.Location,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) ListItems(c echo.Context) error {
	limit := defaultListLimit
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
	}
	if limit <= 0 || limit > maxListLimit {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 200")
	}

	items, err := h.claims.ListAvailable(c.Request().Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count": len(items),
		"items": items,
	})
}

func (h *Handler) GetItem(c echo.Context) error {
	item, err := h.claims.GetItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ClaimItem(c echo.Context) error {
	task, err := h.claims.Claim(c.Request().Context(), c.Param("id"), mustActor(c).ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

func (h *Handler) AcceptClaim(c echo.Context) error {
	task, err := h.claims.Accept(c.Request().Context(), c.Param("id"), mustActor(c).ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) RejectClaim(c echo.Context) error {
	if err := h.claims.Reject(c.Request().Context(), c.Param("id"), mustActor(c).ID); err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ExpireItem(c echo.Context) error {
	if err := h.claims.Expire(c.Request().Context(), c.Param("id"), mustActor(c).ID); err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DirectDeliver(c echo.Context) error {
	task, err := h.dispatch.DirectDeliver(c.Request().Context(), c.Param("id"), mustActor(c).ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) ConfirmReceipt(c echo.Context) error {
	item, err := h.dispatch.ConfirmReceipt(c.Request().Context(), c.Param("id"), mustActor(c).ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, item)
}

func (h *Handler) AddFeedback(c echo.Context) error {
	var req dto.FeedbackRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateFeedbackRequest(&req); err != nil {
		return err
	}

	err := h.claims.AddFeedback(c.Request().Context(), c.Param("id"), mustActor(c).ID, req.Rating, req.Text)
	if err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeliveryRecord(c echo.Context) error {
	record, err := h.claims.DeliveryRecord(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, record)
}
