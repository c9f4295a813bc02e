package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// maxOracleAttempts bounds re-asks when the oracle's response omits the
// required structured decision. The oracle is non-deterministic; without a
// cap a bad model could loop forever.
const maxOracleAttempts = 3

// Question is one clarifying question the oracle may propose. The engine
// uses at most the first one per transaction.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// CategorizationResult is the oracle's decision. The account id is the
// contract; the name field is advisory and always overridden by the
// resolver.
type CategorizationResult struct {
	AccountID   string     `json:"account_id"`
	AccountName string     `json:"account_name"`
	Questions   []Question `json:"clarifying_questions,omitempty"`
}

func (r *CategorizationResult) decided() bool { return r != nil && r.AccountID != "" }

// ColumnGuess names the date-like and amount-like columns of a CSV export.
// Header names vary across exports, so this is an oracle call rather than a
// fixed convention.
type ColumnGuess struct {
	DateColumn   string `json:"date_column"`
	AmountColumn string `json:"amount_column"`
}

// Receipt is the structured extraction of a receipt image.
type Receipt struct {
	Vendor   string        `json:"vendor"`
	Currency string        `json:"currency"`
	Total    string        `json:"total"`
	Items    []ReceiptItem `json:"line_items,omitempty"`
}

type ReceiptItem struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// Suggestion is a local classifier hint folded into the oracle prompt.
type Suggestion struct {
	AccountID  string  `json:"account_id"`
	Account    string  `json:"account"`
	Confidence float64 `json:"confidence"`
}

// ClassifyPayload is everything the oracle sees for one transaction: the
// stripped field set, the chart outline, local hints and any extracted
// receipts.
type ClassifyPayload struct {
	Date     string        `json:"date"`
	Amount   string        `json:"amount"`
	Fields   []promptField `json:"fields"`
	Hints    []Suggestion  `json:"local_suggestions,omitempty"`
	Receipts []*Receipt    `json:"receipts,omitempty"`

	outline string
}

type promptField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// buildPayload serializes a transaction for the oracle, stripping URL and
// empty fields to bound payload size.
func buildPayload(t *Txn, outline string, hints []Suggestion, receipts []*Receipt) ClassifyPayload {
	p := ClassifyPayload{
		Date:     t.Date.Format(stamp),
		Amount:   formatMinor(t.Amount),
		Hints:    hints,
		Receipts: receipts,
		outline:  outline,
	}
	for _, f := range t.Extras {
		if f.Value == "" || isURL(f.Value) {
			continue
		}
		p.Fields = append(p.Fields, promptField{Name: f.Name, Value: f.Value})
	}
	return p
}

func isURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

// Classifier is the oracle contract. Implementations are network-bound and
// non-deterministic; tests use a scripted fake.
type Classifier interface {
	// Classify maps a transaction to an account and may propose clarifying
	// questions.
	Classify(ctx context.Context, p ClassifyPayload) (*CategorizationResult, error)
	// Resolve answers a clarifying question. Its result always overrides the
	// tentative guess from Classify.
	Resolve(ctx context.Context, p ClassifyPayload, q Question, answer string) (*CategorizationResult, error)
	// IdentifyColumns names the date and amount columns of a CSV header.
	IdentifyColumns(ctx context.Context, header []string, samples [][]string) (*ColumnGuess, error)
	// ExtractReceipt pulls structured data out of a receipt image.
	ExtractReceipt(ctx context.Context, image []byte, mime string) (*Receipt, error)
}

func buildClassifyPrompt(p ClassifyPayload) string {
	var b strings.Builder
	b.WriteString("You are a bookkeeping assistant. Assign the transaction below to exactly one ")
	b.WriteString("leaf account from the chart of accounts.\n\n")
	b.WriteString("Chart of accounts (assign only to leaf accounts):\n")
	b.WriteString(p.outline)
	b.WriteString("\nAmounts are signed: positive is income, negative is expense.\n")
	b.WriteString("If local_suggestions are present they come from a statistical classifier ")
	b.WriteString("trained on past transactions; treat them as hints, not truth.\n")
	b.WriteString("If receipts are present, cross-check the transaction amount against them.\n\n")
	b.WriteString("Respond with STRICT JSON only, no markdown fences:\n")
	b.WriteString(`{"account_id": "...", "account_name": "...", "clarifying_questions": [{"text": "...", "options": ["...", "..."]}]}`)
	b.WriteString("\n\nInclude clarifying_questions ONLY if you genuinely cannot decide; ")
	b.WriteString("each question must carry multiple-choice options.\n\nTransaction:\n")
	data, _ := json.MarshalIndent(p, "", "  ")
	b.Write(data)
	return b.String()
}

func buildResolvePrompt(p ClassifyPayload, q Question, answer string) string {
	var b strings.Builder
	b.WriteString("You previously asked a clarifying question about this transaction. ")
	b.WriteString("Using the answer, decide the final leaf account.\n\n")
	b.WriteString("Chart of accounts (assign only to leaf accounts):\n")
	b.WriteString(p.outline)
	b.WriteString("\nRespond with STRICT JSON only:\n")
	b.WriteString(`{"account_id": "...", "account_name": "..."}`)
	b.WriteString("\nDo not include further questions.\n\nTransaction:\n")
	data, _ := json.MarshalIndent(p, "", "  ")
	b.Write(data)
	fmt.Fprintf(&b, "\n\nQuestion: %s\nOptions: %s\nAnswer: %s\n",
		q.Text, strings.Join(q.Options, "; "), answer)
	return b.String()
}

func buildColumnsPrompt(header []string, samples [][]string) string {
	var b strings.Builder
	b.WriteString("Below is the header of a financial ledger CSV export plus a few sample rows. ")
	b.WriteString("Identify which column holds the transaction date and which holds the amount.\n\n")
	b.WriteString("Respond with STRICT JSON only:\n")
	b.WriteString(`{"date_column": "<header name>", "amount_column": "<header name>"}`)
	fmt.Fprintf(&b, "\n\nHeader: %s\n", strings.Join(header, ", "))
	for _, row := range samples {
		fmt.Fprintf(&b, "Row: %s\n", strings.Join(row, ", "))
	}
	return b.String()
}

const receiptPrompt = `Extract the attached receipt image into STRICT JSON only:
{"vendor": "...", "currency": "...", "total": "...", "line_items": [{"description": "...", "amount": "..."}]}
Use the printed totals; do not invent line items.`

// oracleJSON runs a completion and unmarshals the extracted JSON object,
// re-asking up to maxOracleAttempts when the response carries no JSON or
// fails the shape check. Each attempt decodes into a fresh value so a
// half-decoded earlier response cannot leak fields into a later one.
func oracleJSON[T any](ctx context.Context, log zerolog.Logger,
	valid func(*T) bool, complete func(context.Context) (string, error)) (*T, error) {
	var lastErr error
	for attempt := 1; attempt <= maxOracleAttempts; attempt++ {
		text, err := complete(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := extractJSON(text)
		if err == nil {
			out := new(T)
			if err = json.Unmarshal([]byte(raw), out); err == nil && valid(out) {
				return out, nil
			}
			if err == nil {
				err = errors.Errorf("response missing required decision: %s", snippet(raw))
			}
		}
		lastErr = err
		log.Warn().Int("attempt", attempt).Err(err).Msg("malformed oracle response, retrying")
	}
	return nil, errors.Wrapf(lastErr, "no structured decision after %d attempts", maxOracleAttempts)
}

// extractJSON pulls the JSON object out of a model response, tolerating
// markdown fences and surrounding prose.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.Errorf("no JSON object in response: %s", snippet(s))
	}
	return s[start : end+1], nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
