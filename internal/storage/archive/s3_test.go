package archive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Storage_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "portfolios/a.json", "portfolios/a.json"},
		{"compass", "portfolios/a.json", "compass/portfolios/a.json"},
		{"compass/", "/portfolios/a.json", "compass/portfolios/a.json"},
	}

	for _, tt := range tests {
		s, err := NewS3(S3Config{Bucket: "b", Region: "us-east-1", Prefix: tt.prefix})
		if err != nil {
			t.Fatalf("NewS3: %v", err)
		}
		if got := s.key(tt.path); got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	if _, err := NewS3(S3Config{Region: "us-east-1"}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestS3Storage_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/holdings/compass/portfolios/main.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[]`))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
		}
	}))
	defer srv.Close()

	s, err := NewS3(S3Config{
		Bucket:    "holdings",
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "compass",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	ctx := context.Background()

	data, err := s.Read(ctx, "portfolios/main.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("got %q", data)
	}

	if _, err := s.Read(ctx, "portfolios/none.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
