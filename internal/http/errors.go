package httpapp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/jobs"
	"github.com/Azure/cosmos-explorer-sub010/internal/panel"
	"github.com/Azure/cosmos-explorer-sub010/internal/remediation"
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func badRequestIfInput(err error) error {
	if errors.Is(err, panel.ErrInvalidSelection) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

// httpErrorHandler maps domain errors to status codes. Unclassified errors
// are logged and answered with a generic body carrying the request id.
func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	reqID, _ := c.Get(ContextKeyRequestID).(string)

	status, body := classify(err)
	body.RequestID = reqID
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"request_id", reqID,
			"err", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func classify(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Code < http.StatusInternalServerError {
			if s := fmt.Sprint(he.Message); s != "" {
				msg = s
			}
		}
		return he.Code, errorBody{Error: msg}
	}

	var apiErr *arm.APIError
	switch {
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "SESSION_NOT_FOUND"}
	case errors.Is(err, panel.ErrClosed):
		return http.StatusGone, errorBody{Error: err.Error(), Code: "SESSION_CLOSED"}
	case errors.Is(err, remediation.ErrUnknownSection):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "UNKNOWN_SECTION"}
	case errors.Is(err, remediation.ErrManualRemediation):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "MANUAL_REMEDIATION"}
	case errors.Is(err, remediation.ErrOperationNotSucceeded):
		return http.StatusBadGateway, errorBody{Error: err.Error(), Code: "OPERATION_NOT_SUCCEEDED"}
	case errors.Is(err, jobs.ErrUnrecognizedStatus):
		return http.StatusBadGateway, errorBody{Error: err.Error(), Code: "UNRECOGNIZED_JOB_STATUS"}
	case errors.Is(err, arm.ErrMissingToken):
		return http.StatusUnauthorized, errorBody{Error: "management credentials are not configured", Code: "MISSING_TOKEN"}
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		return status, errorBody{Error: apiErr.Message, Code: apiErr.Code}
	}
	return http.StatusInternalServerError, errorBody{Error: "Internal server error", Code: InternalErrorCode}
}
