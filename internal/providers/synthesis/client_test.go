package synthesis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerateDecodesInlinePayload(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	var gotReq synthesizeRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/compose" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"image": map[string]any{
				"data_base64": base64.StdEncoding.EncodeToString(imageBytes),
				"mime_type":   "image/png",
				"width":       1024,
				"height":      1536,
			},
			"request_id": "req-1",
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	result, err := client.Generate(context.Background(), Request{
		Prompt:      "subject wearing jacket",
		AspectRatio: "3:4",
		NewPose:     true,
		ImageRefs: []ImageRef{
			{URL: "https://cdn.example.com/subject.png"},
			{Data: []byte{1, 2, 3}, MIME: "image/jpeg"},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(result.Data) != string(imageBytes) {
		t.Fatalf("payload bytes mismatch")
	}
	if result.MIME != "image/png" || result.Width != 1024 || result.Height != 1536 {
		t.Fatalf("unexpected result metadata: %+v", result)
	}
	if !gotReq.NewPose {
		t.Fatalf("new_pose flag not forwarded")
	}
	if len(gotReq.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(gotReq.Images))
	}
	if gotReq.Images[0].URL == "" || gotReq.Images[0].DataBase64 != "" {
		t.Fatalf("first ref should go by url: %+v", gotReq.Images[0])
	}
	if gotReq.Images[1].DataBase64 == "" {
		t.Fatalf("inline ref should be base64 encoded: %+v", gotReq.Images[1])
	}
}

func TestGenerateClassifiesRateLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "content_blocked",
			"message": "prompt violates content policy",
		})
	})
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("hard error misclassified as rate limit: %v", err)
	}
}

func TestGenerateRequiresCredentialsAndPrompt(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := client.Generate(context.Background(), Request{}); err == nil {
		t.Fatalf("expected prompt validation error")
	}
}
