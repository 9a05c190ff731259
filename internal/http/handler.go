package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "surplus-relay.com/surplus-relay/internal/errors"
	middleware "surplus-relay.com/surplus-relay/internal/http/middlewares"
	"surplus-relay.com/surplus-relay/internal/services"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	inboxLimit       = 100
)

// InboxReader serves stored notifications back to their recipient.
type InboxReader interface {
	Inbox(ctx context.Context, recipientID string, limit int64) ([]string, error)
}

type Handler struct {
	claims   *services.ClaimService
	dispatch *services.DispatchService
	inbox    InboxReader
}

// NewHandler wires the coordinators into HTTP handlers. inbox may be nil when
// no notification store is configured.
func NewHandler(claims *services.ClaimService, dispatch *services.DispatchService, inbox InboxReader) *Handler {
	return &Handler{
		claims:   claims,
		dispatch: dispatch,
		inbox:    inbox,
	}
}

func (h *Handler) Notifications(c echo.Context) error {
	if h.inbox == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "notification inbox is not enabled")
	}

	actor := mustActor(c)
	raw, err := h.inbox.Inbox(c.Request().Context(), actor.ID, inboxLimit)
	if err != nil {
		return toHTTPError(err)
	}

	envelopes := make([]json.RawMessage, 0, len(raw))
	for _, r := range raw {
		envelopes = append(envelopes, json.RawMessage(r))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count":         len(envelopes),
		"notifications": envelopes,
	})
}

// toHTTPError maps domain errors onto their status; anything unclassified is
// logged and hidden behind a generic 500.
func toHTTPError(err error) error {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Printf("http: request failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return echo.NewHTTPError(status, err.Error())
}

func bindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrInvalidJSON.Message)
	}
	return nil
}

// mustActor is only called behind RequireRole.
func mustActor(c echo.Context) middleware.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}
