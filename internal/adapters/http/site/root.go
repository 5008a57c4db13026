// Package site serves the embedded arena dashboard.
package site

import (
	"context"
	"net/http"
)

// Register mounts the dashboard at / on mux. API routes registered with
// longer patterns take precedence.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
