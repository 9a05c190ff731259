package validators

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	dto "surplus-relay.com/surplus-relay/internal/data_models"
)

func ValidateCreateItemRequest(r *dto.CreateItemRequest) error {
	if strings.TrimSpace(r.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if strings.TrimSpace(r.Category) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category is required")
	}
	if r.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}
	if strings.TrimSpace(r.Unit) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "unit is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "location is required")
	}
	return nil
}
