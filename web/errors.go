// ABOUTME: Maps pipeline failures and echo errors onto JSON responses
// ABOUTME: Classified failures answer 422 or 404; internal faults answer a bare 500
package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/harperreed/canvass/pipeline"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorBody struct {
	Success bool `json:"success"`
	*pipeline.Error
}

func statusFor(k pipeline.Kind) int {
	switch k {
	case pipeline.KindInput, pipeline.KindExtraction, pipeline.KindTemplate, pipeline.KindResolution:
		return http.StatusUnprocessableEntity
	case pipeline.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var perr *pipeline.Error
	var herr *echo.HTTPError
	var status int
	var body errorBody
	switch {
	case errors.As(err, &perr):
		status = statusFor(perr.Kind)
		body.Error = perr
	case errors.As(err, &herr):
		status = herr.Code
		body.Error = &pipeline.Error{Kind: pipeline.KindInput, Message: fmt.Sprint(herr.Message)}
		if status == http.StatusNotFound {
			body.Error.Kind = pipeline.KindNotFound
		}
	default:
		status = http.StatusInternalServerError
		s.logger.Error("unhandled error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		body.Error = &pipeline.Error{Kind: pipeline.KindInternal, Message: "internal server error"}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Warn("failed to write error response", zap.Error(err))
	}
}

func formatBytes(n int64) string {
	return fmt.Sprintf("%dK", (n+1023)/1024)
}
