package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/byteowlz/a11yscan/internal/config"
)

type recordingBackend struct {
	mu    sync.Mutex
	calls []completion
	reply string
	err   error
}

func (r *recordingBackend) complete(_ context.Context, c completion) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.reply, r.err
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A red bicycle.", "A red bicycle."},
		{"  \"A red bicycle.\"  ", "A red bicycle."},
		{"Image of a red bicycle leaning on a wall.", "A red bicycle leaning on a wall."},
		{"link to the pricing page", "The pricing page"},
		{"Button to close the dialog", "Close the dialog"},
		{"Alt text: Company logo", "Company logo"},
		{"Close dialog\n\nThis label is short because...", "Close dialog"},
		{"Add   to\ncart", "Add to cart"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClient_Calls(t *testing.T) {
	backend := &recordingBackend{reply: "\"Open the menu\""}
	c := &Client{provider: "fake", maxTokens: 123, backend: backend}
	ctx := context.Background()

	got, err := c.DescribeButton(ctx, ButtonRequest{
		PageSummary:   "A recipe site.",
		ButtonText:    "",
		ParentContext: "Main navigation",
	})
	if err != nil || got != "Open the menu" {
		t.Fatalf("DescribeButton() = %q, %v", got, err)
	}
	call := backend.calls[0]
	if call.maxTokens != 123 || call.image != "" {
		t.Errorf("unexpected completion %+v", call)
	}
	if !strings.Contains(call.prompt, "Button text: (none)") || !strings.Contains(call.prompt, "Surrounding text: Main navigation") {
		t.Errorf("unexpected prompt %q", call.prompt)
	}

	if _, err := c.DescribeImage(ctx, "https://x/a.jpg"); err != nil {
		t.Fatal(err)
	}
	if backend.calls[1].image != "https://x/a.jpg" || backend.calls[1].system != imageSystemPrompt {
		t.Errorf("image not forwarded: %+v", backend.calls[1])
	}

	if _, err := c.DescribeLink(ctx, LinkRequest{LinkText: "Pricing", URL: "https://x/pricing"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(backend.calls[2].prompt, "Link URL: https://x/pricing") {
		t.Errorf("unexpected link prompt %q", backend.calls[2].prompt)
	}

	long := strings.Repeat("word ", maxSummaryInput)
	if _, err := c.Summarize(ctx, "Title", long); err != nil {
		t.Fatal(err)
	}
	if n := len([]rune(backend.calls[3].prompt)); n > maxSummaryInput+100 {
		t.Errorf("summary input not truncated: %d runes", n)
	}
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	empty := &Client{backend: &recordingBackend{reply: "  \"\" "}}
	if _, err := empty.DescribeImage(ctx, "https://x/a.jpg"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
	if _, err := empty.DescribeImage(ctx, ""); err == nil {
		t.Error("expected error for empty image reference")
	}

	cause := errors.New("POST: 400 Bad Request")
	rejected := &Client{backend: &recordingBackend{err: &fetchRejected{cause: cause}}}
	_, err := rejected.DescribeImage(ctx, "https://x/a.jpg")
	if !IsFetchRejected(err) || !errors.Is(err, cause) {
		t.Errorf("expected wrapped fetch rejection, got %v", err)
	}
}

func TestLooksFetchRejected(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"400 Bad Request: Unable to download the file", true},
		{"status 400: could not process image", true},
		{"500 Internal Server Error: download failed", false},
		{"400 Bad Request: max_tokens too large", false},
	}
	for _, tt := range tests {
		if got := looksFetchRejected(errors.New(tt.msg)); got != tt.want {
			t.Errorf("looksFetchRejected(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
	if looksFetchRejected(nil) {
		t.Error("nil error must not be rejected")
	}
}

func TestSplitDataURI(t *testing.T) {
	mt, data, err := splitDataURI("data:image/jpeg;base64,/9j/4AAQ")
	if err != nil || mt != "image/jpeg" || data != "/9j/4AAQ" {
		t.Errorf("splitDataURI() = %q, %q, %v", mt, data, err)
	}
	for _, bad := range []string{"https://x/a.jpg", "data:image/png,rawbytes", "data:text/plain;base64,aGk=", "data:image/png;base64,"} {
		if _, _, err := splitDataURI(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestNew(t *testing.T) {
	for _, p := range []string{config.ProviderClaude, config.ProviderOpenAI} {
		c, err := New(config.ProviderConfig{Provider: p, APIKey: "k"})
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if c.provider != p || c.model == "" {
			t.Errorf("%s: unexpected client %q/%q", p, c.provider, c.model)
		}
	}
	if _, err := New(config.ProviderConfig{Provider: "llama"}); !errors.Is(err, config.ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", err)
	}
}

type countingGateway struct {
	mu    sync.Mutex
	times []time.Time
}

func (g *countingGateway) record() {
	g.mu.Lock()
	g.times = append(g.times, time.Now())
	g.mu.Unlock()
}

func (g *countingGateway) Summarize(context.Context, string, string) (string, error) {
	g.record()
	return "s", nil
}

func (g *countingGateway) DescribeImage(context.Context, string) (string, error) {
	g.record()
	return "i", nil
}

func (g *countingGateway) DescribeLink(context.Context, LinkRequest) (string, error) {
	g.record()
	return "l", nil
}

func (g *countingGateway) DescribeButton(context.Context, ButtonRequest) (string, error) {
	g.record()
	return "b", nil
}

func TestLimit(t *testing.T) {
	inner := &countingGateway{}
	if Limit(inner, 0, 1) != Gateway(inner) {
		t.Error("rps <= 0 should return the gateway unchanged")
	}

	g := Limit(inner, 20, 1)
	ctx := context.Background()
	start := time.Now()
	g.Summarize(ctx, "", "")
	g.DescribeImage(ctx, "x")
	g.DescribeLink(ctx, LinkRequest{})
	g.DescribeButton(ctx, ButtonRequest{})
	if elapsed := time.Since(start); elapsed < 120*time.Millisecond {
		t.Errorf("expected pacing at 20 rps, four calls took %v", elapsed)
	}
	if len(inner.times) != 4 {
		t.Errorf("expected 4 forwarded calls, got %d", len(inner.times))
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := g.DescribeImage(cancelled, "x"); err == nil {
		t.Error("expected error on cancelled context")
	}
}
