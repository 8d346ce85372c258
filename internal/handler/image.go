// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements the image proxy used by the quote editor and PDF
// preview to display remote logos without mixed-content issues.
package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// ImageProxyHandler fetches remote images on behalf of the browser.
type ImageProxyHandler struct {
	client *http.Client
	logger *slog.Logger
}

// NewImageProxyHandler creates a new ImageProxyHandler.
func NewImageProxyHandler(logger *slog.Logger) *ImageProxyHandler {
	return &ImageProxyHandler{
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the image proxy route with the provided mux.
//
// - GET /api/image-proxy?url= -> Proxy
func (h *ImageProxyHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/image-proxy", requireUser(http.HandlerFunc(h.Proxy)))
}

// =============================================================================
// GET /api/image-proxy - Proxy Remote Image
// =============================================================================

// Proxy fetches the image at the url query parameter and streams it back
// with the origin's Content-Type and a one-hour public cache header.
func (h *ImageProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, "URL parameter is required", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		h.logger.Warn("invalid image proxy url", "error", err, "url", rawURL)
		http.Error(w, "Failed to fetch image", http.StatusInternalServerError)
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("image proxy fetch failed", "error", err, "url", rawURL)
		http.Error(w, "Failed to fetch image", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("image proxy upstream error", "status", resp.StatusCode, "url", rawURL)
		http.Error(w, "Failed to fetch image", http.StatusInternalServerError)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers already sent, nothing to recover.
		h.logger.Warn("image proxy stream interrupted", "error", err, "url", rawURL)
	}
}
