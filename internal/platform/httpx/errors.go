package httpx

import (
	"errors"
	"net/http"

	"github.com/groveauth/grove/internal/shared"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Kind         shared.Kind `json:"kind"`
	Message      string      `json:"message"`
	ChildRoleIDs []string    `json:"childRoleIds,omitempty"`
}

// RespondError maps a classified error to an HTTP response.
func RespondError(w http.ResponseWriter, err error) {
	body := ErrorBody{Kind: shared.KindOf(err), Message: "internal error"}

	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		body.Message = domainErr.Message
		body.ChildRoleIDs = domainErr.ChildRoleIDs
	}

	JSON(w, statusFor(body.Kind), body)
}

func statusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindAuthentication:
		return http.StatusUnauthorized
	case shared.KindAuthorization, shared.KindProtected:
		return http.StatusForbidden
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
