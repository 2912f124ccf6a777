package utils

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "postgresql://user:pw@db.local:6432/frp", "db.local:6432"},
		{"default port", "postgresql://user:pw@db.local/frp", "db.local:5432"},
		{"postgres scheme", "postgres://user@localhost:5432/frp?sslmode=disable", "localhost:5432"},
		{"no credentials", "postgresql://db/frp", "db:5432"},
		{"not a db url", "http://localhost:8000", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromServiceURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"http with port", "http://predictor:8000", "predictor:8000"},
		{"http default", "http://predictor", "predictor:80"},
		{"https default", "https://api.example.com/base", "api.example.com:443"},
		{"nats default", "nats://nats", "nats:4222"},
		{"nats with port", "nats://localhost:14222", "localhost:14222"},
		{"unknown scheme", "ftp://host", ""},
		{"garbage", "::", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromServiceURL(tt.url))
		})
	}
}

func TestWaitFor(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	assert.NoError(t, WaitForHTTPResponse(srv.URL, time.Second))
	assert.NoError(t, WaitForTCP(srv.Listener.Addr().String(), time.Second))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	addr := l.Addr().String()
	l.Close()
	assert.Error(t, WaitForTCP(addr, 300*time.Millisecond))
}
