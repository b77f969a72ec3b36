package middleware

import (
	"context"
	"net/http"

	"github.com/toolhub/backend/pkg/logger"
)

type contextKeyType string

const viewerIDKey contextKeyType = "viewer_id"

// Viewer extracts the optional acting-user identity from the X-User-ID header
// and stores it in the request context. Requests without the header proceed
// anonymously; handlers that require an identity reject them individually.
func Viewer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewerID := r.Header.Get("X-User-ID")
			if viewerID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), viewerIDKey, viewerID)
			ctx = logger.WithViewerID(ctx, viewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerIDFromContext extracts the acting user's ID from the request context.
// Returns the empty string for anonymous requests.
func ViewerIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(viewerIDKey).(string); ok {
		return id
	}
	return ""
}
