package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/amadile/Shopping-site-sub001/pkg/httputil"
	"github.com/amadile/Shopping-site-sub001/pkg/middleware"
	"github.com/amadile/Shopping-site-sub001/pkg/validator"
)

// roleAdmin is the JWT role allowed to run back-office operations.
const roleAdmin = "admin"

// maxBodyBytes limits request bodies to 1MB.
const maxBodyBytes = 1 << 20

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteErrorCode(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// decodeRequest reads and validates a JSON body. When allowEmpty is set an
// empty body leaves dst at its zero value. It writes the error response and
// returns false on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !allowEmpty || !errors.Is(err, io.EOF) {
			httputil.WriteErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error())
			return false
		}
	}

	if err := validator.Validate(dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

func isAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == roleAdmin
}
