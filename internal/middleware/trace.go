package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-Id"

type traceKey struct{}

// Trace tags every request with a trace id, minting one unless the client
// sent a well-formed uuid of its own. The id is echoed in the response so
// a student bug report can be matched to server logs.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), traceKey{}, traceID)
		w.Header().Set(traceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceIDFromCtx returns the request's trace id, or "" outside a request.
func TraceIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(traceKey{}).(string)
	return v
}
