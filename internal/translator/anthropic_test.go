package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	tr, err := New("k", "")
	require.NoError(t, err)
	assert.Equal(t, defaultModel, tr.model)
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt("Parks", []string{"First.", "Second."})
	assert.Contains(t, p, "Title: Parks")
	assert.Contains(t, p, "[0] First.")
	assert.Contains(t, p, "[1] Second.")
	assert.Contains(t, p, "exactly 2 entries")
	assert.Contains(t, p, fmt.Sprintf("up to %d keywords", MaxKeywords))
}

func TestParseResponse(t *testing.T) {
	resp := "```json\n" + `{
  "summary": " Parks get trees. ",
  "paragraphs": ["第一。"],
  "keywords": [
    {"text": "council", "cn": "委员会"},
    {"text": "Council", "cn": "委员会"},
    {"text": "", "cn": "空"}
  ]
}` + "\n```"

	res, err := parseResponse(resp, []string{"First.", "Second."})
	require.NoError(t, err)

	assert.Equal(t, "Parks get trees.", res.Summary)
	require.Len(t, res.Paragraphs, 2, "aligned with the source even when the reply is short")
	assert.Equal(t, "First.", res.Paragraphs[0].EN)
	assert.Equal(t, "第一。", res.Paragraphs[0].CN)
	assert.Equal(t, "", res.Paragraphs[1].CN)

	require.Len(t, res.Keywords, 1)
	assert.Equal(t, "council", res.Keywords[0].Text)
}

func TestParseResponse_CapsKeywords(t *testing.T) {
	var kws []string
	for i := 0; i < 12; i++ {
		kws = append(kws, fmt.Sprintf(`{"text":"w%d","cn":"c"}`, i))
	}
	res, err := parseResponse(`{"paragraphs":[],"keywords":[`+strings.Join(kws, ",")+`]}`, nil)
	require.NoError(t, err)
	assert.Len(t, res.Keywords, MaxKeywords)
}

func TestParseResponse_Invalid(t *testing.T) {
	_, err := parseResponse("not json", []string{"a"})
	assert.Error(t, err)
}

func testOptions(srv *httptest.Server) []option.RequestOption {
	return []option.RequestOption{
		option.WithBaseURL(srv.URL),
		option.WithHTTPClient(srv.Client()),
		option.WithMaxRetries(0),
	}
}

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 1) && assert.NotEmpty(t, req.Messages[0].Content) {
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Contains(t, req.Messages[0].Content[0].Text, "[0] Hello there.")
		}

		text := `{"summary":"A greeting.","paragraphs":["你好。"],"keywords":[{"text":"hello","cn":"你好"}]}`
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "test-model",
			"stop_reason": "end_turn",
			"content":     []map[string]string{{"type": "text", "text": text}},
			"usage":       map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer srv.Close()

	tr, err := New("secret", "test-model", testOptions(srv)...)
	require.NoError(t, err)

	res, err := tr.Translate(context.Background(), "Hi", []string{"Hello there."})
	require.NoError(t, err)
	assert.Equal(t, "你好。", res.Paragraphs[0].CN)
	assert.Equal(t, "A greeting.", res.Summary)
	assert.Len(t, res.Keywords, 1)
}

func TestTranslate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`))
	}))
	defer srv.Close()

	tr, err := New("bad", "", testOptions(srv)...)
	require.NoError(t, err)

	_, err = tr.Translate(context.Background(), "", []string{"x"})
	require.Error(t, err)

	var apiErr *anthropic.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestTranslate_NoParagraphs(t *testing.T) {
	tr, err := New("k", "", option.WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)

	res, err := tr.Translate(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Paragraphs)
}

func TestUntranslated(t *testing.T) {
	ps := Untranslated([]string{"a", "b"})
	require.Len(t, ps, 2)
	assert.Equal(t, "b", ps[1].EN)
	assert.Empty(t, ps[1].CN)
}
