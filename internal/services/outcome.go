package services

import (
	"errors"

	apperrors "surplus-relay.com/surplus-relay/internal/errors"
	"surplus-relay.com/surplus-relay/internal/metrics"
	repository "surplus-relay.com/surplus-relay/internal/repositories"
)

// observe counts the outcome of one transition attempt and passes err through.
func observe(operation string, err error) error {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrClaimLost), errors.Is(err, apperrors.ErrAssignmentLost):
		outcome = metrics.OutcomeLost
	default:
		outcome = metrics.OutcomeFail
	}
	metrics.Transitions.WithLabelValues(operation, outcome).Inc()
	return err
}

// conditionFailed maps a conditional write that matched nothing onto the
// caller-facing sentinel; other errors pass through untouched.
func conditionFailed(err error, sentinel *apperrors.Exception, detail string) error {
	if errors.Is(err, repository.ErrConditionNotMet) {
		return apperrors.Detail(sentinel, detail)
	}
	return err
}
