package httpadapter

import (
	"net/http"

	"github.com/qazdocs/docsign/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnknownParticipant):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDocumentCorrupt):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrUpstreamUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
