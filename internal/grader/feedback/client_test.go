package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExplainParsesChatResponse(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request failed: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "off by one in the loop"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	text, err := client.Explain(context.Background(), "for i in range(n)", "sum digits", "Test case 2 failed")
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if text != "off by one in the loop" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("sent %d messages, want system + user", len(gotBody.Messages))
	}
	if !strings.Contains(gotBody.Messages[1].Content, "Test case 2 failed") {
		t.Errorf("prompt is missing the diagnostic: %q", gotBody.Messages[1].Content)
	}
}

func TestExplainServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := client.Explain(context.Background(), "x", "y", "z"); err == nil {
		t.Fatal("server error should propagate so callers can fall back")
	}
}

func TestExplainEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := client.Explain(context.Background(), "x", "y", "z"); err == nil {
		t.Fatal("empty choices should be an error")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("missing base url should fail")
	}
}

func TestNoopExplainerReturnsFallback(t *testing.T) {
	text, err := NoopExplainer{}.Explain(context.Background(), "x", "y", "z")
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if text != FallbackMessage {
		t.Errorf("text = %q, want the fallback message", text)
	}
}
