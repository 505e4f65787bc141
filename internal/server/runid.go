package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RunIDHeader carries the per-request run identifier.
const RunIDHeader = "X-Run-ID"

type ctxKey struct{}

// RunID reuses an incoming X-Run-ID or stamps a new UUID, echoes it on the
// response and stores it in the request context.
func RunID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RunIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RunIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RunIDFrom returns the run ID stored by RunID, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
