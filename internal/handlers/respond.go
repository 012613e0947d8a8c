package handlers

import (
	"errors"

	"tavolo/internal/common"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// respondServiceError maps the service error taxonomy onto HTTP responses.
// Validation failures carry every violating line; transient store conflicts
// are marked retryable so the client can resubmit the identical request.
func respondServiceError(c echo.Context, err error, resource string) error {
	if ve, ok := common.AsValidationError(err); ok {
		return common.SendValidationError(c, ve.Errors)
	}
	if common.IsTransient(err) {
		return common.SendRetryableError(c, "The request conflicted with another operation, please retry")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return common.SendNotFoundError(c, resource)
	}
	return common.SendServerError(c, "Operation could not be completed")
}
