package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPILoader_Load(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{
			"code": 1,
			"message": "ok",
			"data": [
				{"day": "2024-01-02", "open": 100, "high": 105, "low": 99, "close": 104, "volume": 1200},
				{"day": "2024-01-03", "open": 104, "high": 106, "low": 103, "close": 105, "volume": 900}
			]
		}`))
	}))
	defer srv.Close()

	loader := NewAPILoader(APIConfig{URL: srv.URL, AuthHeader: "APPCODE test-code"})
	bars, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if gotAuth != "APPCODE test-code" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 104 || bars[1].Open != 104 {
		t.Errorf("bars = %+v", bars)
	}
}

func TestAPILoader_ErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 0, "message": "quota exceeded", "data": []}`))
	}))
	defer srv.Close()

	_, err := NewAPILoader(APIConfig{URL: srv.URL}).Load(context.Background())
	if err == nil {
		t.Fatal("expected error for non-success code")
	}
}

func TestAPILoader_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewAPILoader(APIConfig{URL: srv.URL}).Load(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}
