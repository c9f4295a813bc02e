package main

import (
	"context"
	"encoding/base64"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

// claudeClassifier is the Claude-backed oracle.
type claudeClassifier struct {
	client anthropic.Client
	model  string
	log    zerolog.Logger
}

func NewClaudeClassifier(apiKey, model string, log zerolog.Logger) (Classifier, error) {
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not set in environment or config.yaml")
	}
	if model == "" {
		model = defaultClaudeModel
	}
	return &claudeClassifier{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		log:    log.With().Str("oracle", "claude").Logger(),
	}, nil
}

func (c *claudeClassifier) complete(ctx context.Context, blocks ...anthropic.ContentBlockParamUnion) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "claude API call failed")
	}
	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", errors.New("empty response from claude")
	}
	return text, nil
}

func (c *claudeClassifier) ask(blocks ...anthropic.ContentBlockParamUnion) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return c.complete(ctx, blocks...)
	}
}

func (c *claudeClassifier) Classify(ctx context.Context, p ClassifyPayload) (*CategorizationResult, error) {
	// A response carrying only clarifying questions is a legitimate outcome.
	return oracleJSON(ctx, c.log,
		func(r *CategorizationResult) bool { return r.decided() || len(r.Questions) > 0 },
		c.ask(anthropic.NewTextBlock(buildClassifyPrompt(p))))
}

func (c *claudeClassifier) Resolve(ctx context.Context, p ClassifyPayload, q Question, answer string) (*CategorizationResult, error) {
	return oracleJSON(ctx, c.log,
		func(r *CategorizationResult) bool { return r.decided() },
		c.ask(anthropic.NewTextBlock(buildResolvePrompt(p, q, answer))))
}

func (c *claudeClassifier) IdentifyColumns(ctx context.Context, header []string, samples [][]string) (*ColumnGuess, error) {
	return oracleJSON(ctx, c.log,
		func(g *ColumnGuess) bool { return g.DateColumn != "" && g.AmountColumn != "" },
		c.ask(anthropic.NewTextBlock(buildColumnsPrompt(header, samples))))
}

func (c *claudeClassifier) ExtractReceipt(ctx context.Context, image []byte, mime string) (*Receipt, error) {
	return oracleJSON(ctx, c.log,
		func(r *Receipt) bool { return r.Total != "" || r.Vendor != "" },
		c.ask(
			anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(image)),
			anthropic.NewTextBlock(receiptPrompt)))
}
