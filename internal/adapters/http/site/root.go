// Package site serves the embedded live monitor page.
package site

import (
	"net/http"
)

// Register attaches the monitor page to mux at GET /. The page subscribes to
// /sessions/{id}/stream and links the report downloads.
func Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}
