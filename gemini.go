package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiClassifier is the Gemini-backed oracle, selected with
// `ai.backend: gemini` in config.yaml.
type geminiClassifier struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

func NewGeminiClassifier(ctx context.Context, apiKey, model string, log zerolog.Logger) (Classifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create genai client")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiClassifier{
		client: client,
		model:  model,
		log:    log.With().Str("oracle", "gemini").Logger(),
	}, nil
}

func (g *geminiClassifier) complete(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", errors.Wrap(err, "gemini API call failed")
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from gemini")
	}
	return cleanModelJSON(text), nil
}

// cleanModelJSON strips markdown fences the model sometimes adds despite the
// STRICT JSON instruction.
func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (g *geminiClassifier) ask(parts []*genai.Part) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return g.complete(ctx, parts)
	}
}

func (g *geminiClassifier) Classify(ctx context.Context, p ClassifyPayload) (*CategorizationResult, error) {
	// A response carrying only clarifying questions is a legitimate outcome.
	return oracleJSON(ctx, g.log,
		func(r *CategorizationResult) bool { return r.decided() || len(r.Questions) > 0 },
		g.ask([]*genai.Part{{Text: buildClassifyPrompt(p)}}))
}

func (g *geminiClassifier) Resolve(ctx context.Context, p ClassifyPayload, q Question, answer string) (*CategorizationResult, error) {
	return oracleJSON(ctx, g.log,
		func(r *CategorizationResult) bool { return r.decided() },
		g.ask([]*genai.Part{{Text: buildResolvePrompt(p, q, answer)}}))
}

func (g *geminiClassifier) IdentifyColumns(ctx context.Context, header []string, samples [][]string) (*ColumnGuess, error) {
	return oracleJSON(ctx, g.log,
		func(gs *ColumnGuess) bool { return gs.DateColumn != "" && gs.AmountColumn != "" },
		g.ask([]*genai.Part{{Text: buildColumnsPrompt(header, samples)}}))
}

func (g *geminiClassifier) ExtractReceipt(ctx context.Context, image []byte, mime string) (*Receipt, error) {
	return oracleJSON(ctx, g.log,
		func(r *Receipt) bool { return r.Total != "" || r.Vendor != "" },
		g.ask([]*genai.Part{
			{Text: receiptPrompt},
			{InlineData: &genai.Blob{MIMEType: mime, Data: image}},
		}))
}
