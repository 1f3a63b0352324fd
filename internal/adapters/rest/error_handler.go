package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/domain/shared"
)

// statusRule maps a sentinel to an HTTP status. Rules are checked in order,
// so narrower sentinels come before the families that wrap them.
type statusRule struct {
	target error
	code   int
}

var statusRules = []statusRule{
	// 400
	{shared.ErrSignInParse, http.StatusBadRequest},
	{shared.ErrInvalidRequest, http.StatusBadRequest},
	{shared.ErrInvalidTimeFormat, http.StatusBadRequest},
	{shared.ErrInvalidStartTime, http.StatusBadRequest},
	{shared.ErrInvalidEndTime, http.StatusBadRequest},
	{shared.ErrInvalidStartingPrice, http.StatusBadRequest},

	// 401
	{shared.ErrSignIn, http.StatusUnauthorized},
	{shared.ErrUnauthorized, http.StatusUnauthorized},
	{shared.ErrInvalidToken, http.StatusUnauthorized},

	// 403
	{shared.ErrForbidden, http.StatusForbidden},
	{shared.ErrTenantMismatch, http.StatusForbidden},
	{shared.ErrSelfBid, http.StatusForbidden},

	// 404
	{shared.ErrTenantNotFound, http.StatusNotFound},
	{shared.ErrCompanyNotFound, http.StatusNotFound},
	{shared.ErrUserNotFound, http.StatusNotFound},
	{shared.ErrAuctionNotFound, http.StatusNotFound},
	{shared.ErrAuctionItemNotFound, http.StatusNotFound},
	{shared.ErrItemNotFound, http.StatusNotFound},
	{shared.ErrBidNotFound, http.StatusNotFound},
	{shared.ErrNoBidsFound, http.StatusNotFound},

	// 409
	{shared.ErrTenantDomainTaken, http.StatusConflict},
	{shared.ErrUserExists, http.StatusConflict},
	{shared.ErrBidConflict, http.StatusConflict},
	{shared.ErrStateConflict, http.StatusConflict},
	{shared.ErrItemNotAvailable, http.StatusConflict},
	{shared.ErrItemAlreadyInAuction, http.StatusConflict},
	{shared.ErrAuctionAlreadyEnded, http.StatusConflict},

	// 422
	{shared.ErrInvalidTransition, http.StatusUnprocessableEntity},
	{shared.ErrBidAmountTooLow, http.StatusUnprocessableEntity},
	{shared.ErrBidAmountInvalid, http.StatusUnprocessableEntity},
	{shared.ErrBidAmountBelowStarting, http.StatusUnprocessableEntity},
	{shared.ErrAuctionNotAcceptingBids, http.StatusUnprocessableEntity},
	{shared.ErrAuctionNotStarted, http.StatusUnprocessableEntity},
	{shared.ErrAuctionStartInFuture, http.StatusUnprocessableEntity},
	{shared.ErrAuctionNotEditable, http.StatusUnprocessableEntity},
	{shared.ErrAuctionHasNoItems, http.StatusUnprocessableEntity},
	{shared.ErrCompanyTenantMismatch, http.StatusUnprocessableEntity},
	{shared.ErrUserNotConnected, http.StatusUnprocessableEntity},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain sentinels to their HTTP status codes.
//   - Logs unexpected errors without leaking details to the client.
//   - Renders the response envelope for every failure.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, envelope) {
	// Echo's own errors (bind failures, 404 from router, middleware rejections)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, envelope{Error: fmt.Sprintf("%v", he.Message), StatusCode: he.Code}
	}

	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("Unhandled error")
		return code, envelope{Error: "internal server error", StatusCode: code}
	}

	body := envelope{Error: err.Error(), StatusCode: code}
	var validation *shared.ValidationError
	if errors.As(err, &validation) {
		body.Error = shared.ErrInvalidRequest.Error()
		body.Fields = validation.Fields
	}
	return code, body
}

func statusFor(err error) int {
	for _, rule := range statusRules {
		if errors.Is(err, rule.target) {
			return rule.code
		}
	}
	return http.StatusInternalServerError
}
