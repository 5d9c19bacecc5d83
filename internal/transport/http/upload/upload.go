// Package upload tracks the temp files spooled for a request so that every
// exit path, successful or not, can remove them.
package upload

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-bff-auth/internal/domain"
)

type ctxKey struct{}

type registry struct {
	mu    sync.Mutex
	files []*domain.FileUpload
}

// Scope installs a registry on the request and removes any tracked file once
// the handler chain returns.
func Scope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRegistry(r.Context())
		defer Cleanup(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRegistry returns ctx carrying an empty registry.
func WithRegistry(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, &registry{})
}

// Track records f. It reports false when ctx has no registry.
func Track(ctx context.Context, f *domain.FileUpload) bool {
	reg, ok := ctx.Value(ctxKey{}).(*registry)
	if !ok {
		return false
	}
	reg.mu.Lock()
	reg.files = append(reg.files, f)
	reg.mu.Unlock()
	return true
}

// File returns the tracked upload for a form field, or nil.
func File(ctx context.Context, field string) *domain.FileUpload {
	for _, f := range Files(ctx) {
		if f.Field == field {
			return f
		}
	}
	return nil
}

func Files(ctx context.Context) []*domain.FileUpload {
	reg, ok := ctx.Value(ctxKey{}).(*registry)
	if !ok {
		return nil
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*domain.FileUpload, len(reg.files))
	copy(out, reg.files)
	return out
}

// Cleanup removes every tracked file still on disk and empties the registry.
func Cleanup(ctx context.Context) {
	reg, ok := ctx.Value(ctxKey{}).(*registry)
	if !ok {
		return
	}
	reg.mu.Lock()
	files := reg.files
	reg.files = nil
	reg.mu.Unlock()
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not remove temp upload", "path", f.Path, "err", err)
		}
	}
}
