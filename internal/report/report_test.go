package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/assessment"
)

func TestStripDangerous(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"script element", `a<script>alert(1)</script>b`, "ab"},
		{"nested reassembly", `<scr<script></script>ipt>alert(1)</script>`, "alert(1)"},
		{"event handler", `<p onclick="x()">hi</p>`, `<p >hi</p>`},
		{"scheme", `[x](JavaScript:alert(1))`, `[x](alert(1))`},
		{"vbscript", `vbscript:msgbox`, "msgbox"},
		{"data url", `<img src="data:text/html;base64,PHNjcmlwdD4=">`, `<img src="">`},
		{"css expression", `width: expression(alert(1))`, `width: alert(1))`},
		{"moz binding", `-moz-binding: x`, `: x`},
		{"unclosed iframe", `ok <iframe src=x`, "ok "},
		{"plain markdown", "# Title\n\n- one\n- two", "# Title\n\n- one\n- two"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, StripDangerous(c.in))
		})
	}
}

func TestSanitize(t *testing.T) {
	out := Sanitize(`<script>alert(1)</script><p onclick="x()">hi</p>`)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "hi")

	out = Sanitize("[click](jav&#x61;script:alert(1)) and [site](https://example.com)")
	assert.NotContains(t, strings.ToLower(out), "javascript")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, "click")

	out = Sanitize(`<div style="color: red; background-image: url(x)">a</div><marquee>b</marquee>`)
	assert.NotContains(t, out, "marquee")
	assert.NotContains(t, out, "url(")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")

	out = Sanitize("see &#106;avascript:alert(1) here")
	assert.NotContains(t, strings.ToLower(out), "javascript:")
	assert.Contains(t, out, "alert(1)")

	out = Sanitize(`hi &#111;nclick="x()" there`)
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "there")

	out = Sanitize("**Strengths**\n\n- Data is centralised\n- Leadership is engaged")
	assert.Contains(t, out, "<strong>Strengths</strong>")
	assert.Contains(t, out, "<li>Data is centralised</li>")
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{
		`<script>alert(1)</script><p onclick="x()">hi</p>`,
		"# Title\n\nSome **bold** text\nnext line\n\n- one\n- two\n\n[site](https://example.com)",
		"## Gaps\n\n1. Data is *scattered*\n2. Skills are basic\n\nTom's team & partners",
		`<div style="color: red">x</div>`,
		"see &#106;avascript:alert(1) here",
		`hi &#111;nclick="x()" there`,
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestFilterStyle(t *testing.T) {
	assert.Equal(t, "color: red", FilterStyle(`color: red; background: url(javascript:x); width: expr\65 ssion(1)`))
	assert.Equal(t, "color: red", FilterStyle(`col/**/or: red`))
	assert.Equal(t, "", FilterStyle(`behavior: url(x.htc)`))
	assert.Equal(t, "", FilterStyle(`x: \\75 rl(a)`))
	assert.Equal(t, "text-align: center; font-weight: bold", FilterStyle("text-align: center;; font-weight: bold;"))
}

func TestRebuildDropsUnknownTagsKeepsText(t *testing.T) {
	out := Rebuild(`<blink>hello</blink><p>world</p><a href="ftp://x">f</a>`)
	assert.NotContains(t, out, "blink")
	assert.NotContains(t, out, "ftp://")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "<p>world</p>")
}

func TestPlainText(t *testing.T) {
	in := "# Title\n\n**Bold** and *it* with `code`\n\n* item\n[site](https://x.io)\n<b>tag</b>"
	assert.Equal(t, "Title\n\nBold and it with code\n\n- item\nsite (https://x.io)\ntag", PlainText(in))
}

func TestEmailHTML(t *testing.T) {
	res := assessment.Result{Score: 21, MaxScore: 29, Tier: assessment.TierAIEnhanced, Breakdown: map[string]int{"dataReadiness": 5}}
	out, err := EmailHTML("Acme & Co", res, "<p>hi</p>")
	require.NoError(t, err)
	assert.Contains(t, out, "for Acme &amp; Co")
	assert.Contains(t, out, "21 / 29")
	assert.Contains(t, out, "AI-Enhanced")
	assert.Contains(t, out, "<p>hi</p>")
	assert.Contains(t, out, "Data Readiness")
}

func TestGenerator(t *testing.T) {
	var (
		mu                sync.Mutex
		gotAuth, gotModel string
		choices           = true
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)

		resp := map[string]any{
			"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": gotModel,
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		if choices {
			resp["choices"] = []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": "  # Report\n\nDone.  "},
			}}
		} else {
			resp["choices"] = []any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewGenerator(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini", MaxTokens: 100, RPS: 100}, nil)
	require.True(t, g.Configured())

	text, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "# Report\n\nDone.", text)
	mu.Lock()
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotModel)
	choices = false
	mu.Unlock()

	_, err = g.Generate(context.Background(), "prompt")
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestGeneratorNotConfigured(t *testing.T) {
	assert.False(t, NewGenerator(Config{}, nil).Configured())
	var g *Generator
	assert.False(t, g.Configured())
}

func TestGeneratorHonoursCancelledContext(t *testing.T) {
	g := NewGenerator(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1", RPS: 0.001}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, "p")
	assert.Error(t, err)
}
