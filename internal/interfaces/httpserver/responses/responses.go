// Package responses formats error returns as JSON, mapped from
// codeerr.Kind (this engine has one error taxonomy, so there is no
// reason to carry a second in parallel).
package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
)

// ErrorResponse is the JSON body written for any failed request on the
// debug/ops surface.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HandleError aborts reqCtx with a status derived from err's
// codeerr.Kind (http.StatusInternalServerError for an untagged error)
// and the given message as the response body's "error" field.
func HandleError(reqCtx *gin.Context, err error, message string) {
	kind, ok := codeerr.KindOf(err)
	if !ok {
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: message})
		return
	}
	reqCtx.AbortWithStatusJSON(statusForKind(kind), ErrorResponse{Error: message, Kind: string(kind)})
}

// statusForKind maps the engine's error taxonomy onto HTTP status
// codes, one switch arm per category.
func statusForKind(kind codeerr.Kind) int {
	switch kind {
	case codeerr.KindConfigInvalid, codeerr.KindSchemaInvalid:
		return http.StatusBadRequest
	case codeerr.KindToolNotFound:
		return http.StatusNotFound
	case codeerr.KindDuplicateTool, codeerr.KindBusySession:
		return http.StatusConflict
	case codeerr.KindHostBlocked:
		return http.StatusForbidden
	case codeerr.KindMcpUnavailable, codeerr.KindClientDisconnected:
		return http.StatusBadGateway
	case codeerr.KindTimeout:
		return http.StatusGatewayTimeout
	case codeerr.KindScriptException, codeerr.KindCallbackError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
