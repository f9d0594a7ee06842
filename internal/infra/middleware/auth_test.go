package middleware

import (
	"net/http"
	"testing"
)

func TestBearerAuth(t *testing.T) {
	h := BearerAuth([]string{"alpha", " beta ", ""})(okHandler)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "first token", header: "Bearer alpha", want: http.StatusOK},
		{name: "trimmed token", header: "Bearer beta", want: http.StatusOK},
		{name: "scheme case", header: "bearer alpha", want: http.StatusOK},
		{name: "wrong token", header: "Bearer gamma", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic alpha", want: http.StatusUnauthorized},
		{name: "missing", header: "", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hdr map[string]string
			if tt.header != "" {
				hdr = map[string]string{"Authorization": tt.header}
			}
			w := send(h, "127.0.0.1:1", hdr)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate")
			}
		})
	}
}

func TestBearerAuthDisabled(t *testing.T) {
	h := BearerAuth(nil)(okHandler)
	if w := send(h, "127.0.0.1:1", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
