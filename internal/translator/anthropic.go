// Package translator glosses imported articles into Chinese through the
// Anthropic Messages API.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pbaille/ace/internal/domain"
)

const (
	defaultModel = "claude-sonnet-4-20250514"

	// MaxKeywords caps the keywords kept per article.
	MaxKeywords = 8
)

// ErrNoAPIKey means translation is unavailable; imports continue untranslated.
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY not set")

// Result holds the translation of one article
type Result struct {
	Summary    string             `json:"summary"`
	Paragraphs []domain.Paragraph `json:"paragraphs"`
	Keywords   []domain.Keyword   `json:"keywords"`
}

// Translator handles article translation via Anthropic API
type Translator struct {
	client anthropic.Client
	model  string
}

// New creates a new Translator. Extra request options (base URL, HTTP
// client, retries) are passed through to the SDK client.
func New(apiKey, model string, opts ...option.RequestOption) (*Translator, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = defaultModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Translator{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Translate glosses every paragraph and picks keywords for the article.
// The returned paragraphs always line up with the input.
func (t *Translator) Translate(ctx context.Context, title string, paragraphs []string) (*Result, error) {
	if len(paragraphs) == 0 {
		return &Result{Paragraphs: []domain.Paragraph{}, Keywords: []domain.Keyword{}}, nil
	}

	resp, err := t.callAPI(ctx, buildPrompt(title, paragraphs))
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	return parseResponse(resp, paragraphs)
}

// Untranslated wraps source paragraphs with empty glosses
func Untranslated(paragraphs []string) []domain.Paragraph {
	out := make([]domain.Paragraph, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = domain.Paragraph{EN: p}
	}
	return out
}

func buildPrompt(title string, paragraphs []string) string {
	var sb strings.Builder

	sb.WriteString("Translate this English article into Simplified Chinese for a language learner. Return JSON only.\n\n")
	if title != "" {
		sb.WriteString("Title: ")
		sb.WriteString(title)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Paragraphs (numbered):\n")
	for i, p := range paragraphs {
		fmt.Fprintf(&sb, "[%d] %s\n", i, p)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, `Return a JSON object with this structure:
{
  "summary": "one-sentence English summary",
  "paragraphs": ["Chinese translation of [0]", "Chinese translation of [1]"],
  "keywords": [
    {"text": "english word or phrase", "cn": "Chinese gloss"}
  ]
}

Rules:
- "paragraphs" has exactly %d entries, in the same order as the input
- Pick up to %d keywords worth learning, in the order they appear
- Keywords must appear verbatim in the article

Return ONLY the JSON, no other text.`, len(paragraphs), MaxKeywords)

	return sb.String()
}

func (t *Translator) callAPI(ctx context.Context, prompt string) (string, error) {
	msg, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("empty response")
}

type translation struct {
	Summary    string           `json:"summary"`
	Paragraphs []string         `json:"paragraphs"`
	Keywords   []domain.Keyword `json:"keywords"`
}

func parseResponse(resp string, source []string) (*Result, error) {
	// Clean up response - remove markdown code blocks if present
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var tr translation
	if err := json.Unmarshal([]byte(resp), &tr); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	// a short or long reply still pairs by position
	result := &Result{
		Summary:    strings.TrimSpace(tr.Summary),
		Paragraphs: Untranslated(source),
		Keywords:   []domain.Keyword{},
	}
	for i := range result.Paragraphs {
		if i < len(tr.Paragraphs) {
			result.Paragraphs[i].CN = strings.TrimSpace(tr.Paragraphs[i])
		}
	}

	seen := make(map[string]bool)
	for _, kw := range tr.Keywords {
		key := strings.ToLower(strings.TrimSpace(kw.Text))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		result.Keywords = append(result.Keywords, domain.Keyword{Text: strings.TrimSpace(kw.Text), CN: strings.TrimSpace(kw.CN)})
		if len(result.Keywords) == MaxKeywords {
			break
		}
	}

	return result, nil
}
