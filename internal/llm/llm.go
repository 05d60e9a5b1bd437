// Package llm suggests titles for formatter bug reports using the Anthropic API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// maxSourceBytes bounds how much template source is sent with a prompt.
const maxSourceBytes = 8000

// maxTitleLen is the longest title returned; longer answers are cut at a word.
const maxTitleLen = 80

// Client wraps the Anthropic API for issue titles.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildTitlePrompt constructs the system and user prompts for a report title.
func buildTitlePrompt(source, diff string) (system string, user string) {
	system = `You write issue titles for bug reports against djangofmt, a formatter for Django and Jinja HTML templates. You are given the template that was formatted and a diff of what the formatter changed.

Rules:
- Return ONLY the title text on a single line, no quotes, no markdown, no trailing period
- At most 80 characters
- Describe the formatter behaviour, e.g. "Inline if tag split across lines inside attribute"
- Mention the template construct involved (tag, filter, attribute, comment, whitespace) when it is clear
- If the diff is empty, describe the input the formatter left unchanged`

	if len(source) > maxSourceBytes {
		source = source[:maxSourceBytes] + "\n[truncated]"
	}

	var sb strings.Builder
	sb.WriteString("Template:\n")
	sb.WriteString(source)
	sb.WriteString("\n\n")
	if diff == "" {
		sb.WriteString("The formatter made no changes.\n")
	} else {
		sb.WriteString("Formatter diff:\n")
		sb.WriteString(diff)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// SuggestTitle asks the model for a short issue title.
func (c *Client) SuggestTitle(ctx context.Context, source, diff string) (string, error) {
	systemPrompt, userPrompt := buildTitlePrompt(source, diff)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	title := cleanTitle(text)
	if title == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return title, nil
}

// cleanTitle reduces a model answer to a single bare title line.
func cleanTitle(text string) string {
	text = strings.TrimSpace(text)
	// Strip markdown fencing if present
	if strings.HasPrefix(text, "```") {
		text = strings.Trim(text, "`")
		text = strings.TrimSpace(text)
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		text = line
		break
	}
	text = strings.TrimLeft(text, "# ")
	if rest, ok := strings.CutPrefix(text, "Title:"); ok {
		text = strings.TrimSpace(rest)
	}
	text = strings.Trim(text, "\"'`")
	text = strings.TrimSuffix(text, ".")
	text = strings.TrimSpace(text)

	if len(text) > maxTitleLen {
		cut := text[:maxTitleLen]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		text = strings.TrimSpace(cut)
	}
	return text
}
