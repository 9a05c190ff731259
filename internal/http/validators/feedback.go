package validators

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	dto "surplus-relay.com/surplus-relay/internal/data_models"
)

func ValidateFeedbackRequest(r *dto.FeedbackRequest) error {
	if r.Rating < 1 || r.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	if strings.TrimSpace(r.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	return nil
}
