package handler

import (
	"net/http"

	"github.com/weatherdash/weatherdash/internal/api/middleware"
)

// requestID returns the request ID assigned by the RequestID middleware.
func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
