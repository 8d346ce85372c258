package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestImageProxy_StreamsUpstreamImage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer upstream.Close()

	h := NewImageProxyHandler(newTestLogger())

	req := httptest.NewRequest("GET", "/api/image-proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()

	h.Proxy(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestImageProxy_DefaultsContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Type set; Go sniffs unless we write headers first.
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	h := NewImageProxyHandler(newTestLogger())

	req := httptest.NewRequest("GET", "/api/image-proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()

	h.Proxy(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Error("Content-Type should never be empty")
	}
}

func TestImageProxy_MissingURL(t *testing.T) {
	h := NewImageProxyHandler(newTestLogger())

	req := httptest.NewRequest("GET", "/api/image-proxy", nil)
	rec := httptest.NewRecorder()

	h.Proxy(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImageProxy_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer upstream.Close()

	h := NewImageProxyHandler(newTestLogger())

	req := httptest.NewRequest("GET", "/api/image-proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()

	h.Proxy(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
