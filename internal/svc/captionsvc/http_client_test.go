package captionsvc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/mkrupp/memeforge/internal/svc/captionsvc"
)

func TestHTTPClient_Caption(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TemplateID string `json:"template_id"`
			Boxes      []struct {
				Text string `json:"text"`
			} `json:"boxes"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		if req.TemplateID != "181913649" || len(req.Boxes) != 2 || req.Boxes[0].Text != "top" {
			t.Errorf("unexpected request: %+v", req)
		}

		_, _ = w.Write([]byte(`{"success":true,"data":{"url":"https://i.example.com/meme.jpg"}}`))
	}))
	t.Cleanup(server.Close)

	client := NewHTTPClient(HTTPClientConfig{CaptionURL: server.URL}, nil)

	url, err := client.Caption(context.TODO(), "181913649", []CaptionBox{{Text: "top"}, {Text: "bottom"}})
	if err != nil {
		t.Fatalf("caption failed: %v", err)
	}

	if url != "https://i.example.com/meme.jpg" {
		t.Errorf("url = %q", url)
	}
}

func TestHTTPClient_CaptionRejected(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			"http error status",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			ErrCaptionRejected,
		},
		{
			"proxy-level failure",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"error_message":"template not found"}`))
			},
			ErrCaptionRejected,
		},
		{
			"missing url",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
			},
			ErrCaptionNoURL,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			t.Cleanup(server.Close)

			client := NewHTTPClient(HTTPClientConfig{CaptionURL: server.URL}, nil)

			_, err := client.Caption(context.TODO(), "1", []CaptionBox{{Text: "x"}})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
