// Package vision talks to a hosted vision-language model over an
// OpenAI-compatible chat completions API.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/sashabaranov/go-openai"
)

const (
	classifyPrompt = "Is this an X-ray or CT scan image? Answer with only 'yes' if it is, 'no' if it's not."

	reportSystemPrompt = "You are a medical imaging expert. Provide analysis in clear text without any markdown formatting or special characters like asterisks. Use simple headings and bullet points with standard formatting."

	reportPrompt = `Please analyze this X-ray image and provide a detailed medical report using the following format:

Type of X-ray:
[Describe the type and orientation of the X-ray]

Key Findings:
• [List each finding on a new line with a bullet point]
• [Focus on normal and abnormal findings]
• [Include major anatomical structures]

Potential Conditions:
• [List potential conditions based on findings]
• [Include likelihood assessments]

Recommendations:
• [Provide any follow-up recommendations]

Please provide the analysis in plain text without any special characters or markdown formatting.`
)

// ChatCompleter is the part of the OpenAI client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config selects the model endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	api     ChatCompleter
	model   string
	timeout time.Duration
}

// NewClient builds a client for cfg. An empty API key is a configuration
// error reported at call time so the server can still start.
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	var api ChatCompleter
	if cfg.APIKey != "" {
		api = openai.NewClientWithConfig(oc)
	}
	return newClient(api, cfg.Model, cfg.Timeout)
}

func newClient(api ChatCompleter, model string, timeout time.Duration) *Client {
	return &Client{api: api, model: model, timeout: timeout}
}

// Image is an uploaded picture ready to be sent to the model.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURL encodes the image as a base64 data URL.
func (i Image) DataURL() string {
	ct := i.ContentType
	if ct == "" || !strings.HasPrefix(ct, "image/") {
		ct = http.DetectContentType(i.Data)
		if !strings.HasPrefix(ct, "image/") {
			ct = "image/jpeg"
		}
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// IsMedicalImage asks the model whether img is an X-ray or CT scan.
func (c *Client) IsMedicalImage(ctx context.Context, img Image) (bool, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			userMessage(classifyPrompt, img),
		},
		MaxTokens:   10,
		Temperature: 0.1,
		TopP:        0.7,
	}

	answer, err := c.complete(ctx, req)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(answer), "yes"), nil
}

// Analyze requests the structured report and returns it sanitized.
func (c *Client) Analyze(ctx context.Context, img Image) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reportSystemPrompt},
			userMessage(reportPrompt, img),
		},
		MaxTokens:   512,
		Temperature: 0.7,
		TopP:        0.7,
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", common.ErrNoContent
	}

	report := Sanitize(text)
	if report == "" {
		return "", common.ErrNoContent
	}
	return report, nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: vision api key is not set", common.ErrConfiguration)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", common.ErrUpstreamFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func userMessage(prompt string, img Image) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: img.DataURL()}},
		},
	}
}
