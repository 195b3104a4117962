package routes

import (
	"errors"
	"net/http"

	"pathmind/pkg/common"
)

// statusForError maps pipeline errors onto HTTP status codes. Ambiguous
// resolutions are handled by the callers because they carry a candidate
// payload, not just a message.
func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConfiguration):
		return http.StatusConflict
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrDataIntegrity):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
