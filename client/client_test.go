package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestClassify_Success(t *testing.T) {
	var gotAuth, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		f, h, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing image field: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotBody = h.Filename, string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subCategory":"Bottomwear","articleType":"Jeans","baseColour":"Blue","season":"Summer","usage":"Casual"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("tok"))
	res, err := c.Classify(context.Background(), "jeans.jpg", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ArticleType != "Jeans" || res.Usage != "Casual" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotName != "jeans.jpg" || gotBody != "payload" {
		t.Errorf("unexpected upload %q %q", gotName, gotBody)
	}
}

func TestClassify_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Classify(context.Background(), "a.png", strings.NewReader("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("expected no Authorization header, got %q", gotAuth)
	}
}

func TestClassify_APIError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Invalid prediction index","column":"season","index":7}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Classify(context.Background(), "a.png", strings.NewReader("x"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", apiErr.StatusCode)
	}
	if apiErr.Body.Column != "season" || apiErr.Body.Index == nil || *apiErr.Body.Index != 7 {
		t.Errorf("unexpected body: %+v", apiErr.Body)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one call, got %d", calls.Load())
	}
}

func TestClassify_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Classify(context.Background(), "a.png", strings.NewReader("x"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if !strings.Contains(apiErr.Body.Error, "bad gateway") {
		t.Errorf("expected raw body in error, got %q", apiErr.Body.Error)
	}
}
