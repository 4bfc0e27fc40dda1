package encoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestHashEncoder_DeterministicAndFixedWidth(t *testing.T) {
	t.Parallel()

	enc := NewHashEncoder(32)
	ctx := context.Background()

	a, err := enc.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := enc.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same text must embed identically")
	}
	if len(a) != 32 {
		t.Fatalf("width: want 32, got %d", len(a))
	}

	c, _ := enc.Embed(ctx, "a completely different sentence")
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different texts should not collide wholesale")
	}
}

func TestHashEncoder_CaseInsensitiveTokens(t *testing.T) {
	t.Parallel()

	enc := NewHashEncoder(16)
	ctx := context.Background()
	lower, _ := enc.Embed(ctx, "password reset")
	upper, _ := enc.Embed(ctx, "PASSWORD RESET")
	if !reflect.DeepEqual(lower, upper) {
		t.Fatalf("tokens must be case-folded before hashing")
	}
}

func TestHashEncoder_DefaultDimensions(t *testing.T) {
	t.Parallel()

	enc := NewHashEncoder(0)
	if enc.Dimensions() != 64 {
		t.Fatalf("default width: %d", enc.Dimensions())
	}
}

func TestHashEncoder_HonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEncoder(8).Embed(ctx, "x"); err == nil {
		t.Fatalf("cancelled context should fail")
	}
}

func TestOpenAIEncoder_Embed(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReq openAIEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	enc := NewOpenAIEncoder(OpenAIConfig{
		BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-3-small", Dimensions: 3,
	})
	vec, err := enc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !reflect.DeepEqual(vec, []float64{0.1, 0.2, 0.3}) {
		t.Fatalf("vector: %v", vec)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header: %q", gotAuth)
	}
	if gotReq.Input != "hello" || gotReq.Model != "text-embedding-3-small" || gotReq.Dimensions != 3 {
		t.Fatalf("request body: %+v", gotReq)
	}
}

func TestOpenAIEncoder_NonSuccessStatusFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	enc := NewOpenAIEncoder(OpenAIConfig{BaseURL: srv.URL})
	_, err := enc.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestOpenAIEncoder_EmptyDataFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	enc := NewOpenAIEncoder(OpenAIConfig{BaseURL: srv.URL})
	if _, err := enc.Embed(context.Background(), "hello"); err == nil {
		t.Fatalf("empty data should fail")
	}
}

func TestFunc_Adapts(t *testing.T) {
	t.Parallel()

	f := Func(func(_ context.Context, text string) ([]float64, error) {
		return []float64{float64(len(text))}, nil
	})
	vec, err := f.Embed(context.Background(), "abc")
	if err != nil || len(vec) != 1 || vec[0] != 3 {
		t.Fatalf("adapter broken: %v %v", vec, err)
	}
}
