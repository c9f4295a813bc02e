package main

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Engine drives the per-transaction state machine:
// Pending -> Skipped (key already stored)
// Pending -> Classified (confident oracle decision)
// Pending -> AwaitingClarification -> Classified (one question, one answer)
// Classified -> Persisted.
// Processing is strictly sequential: a clarification may block on the
// terminal and interleaving prompts has no meaning there.
type Engine struct {
	chart      *Chart
	store      *Store
	classifier Classifier
	answers    AnswerSource
	normalizer ImageNormalizer
	cache      *ReceiptCache
	suggest    *suggester
	review     *reviewer
	dryRun     bool
	log        zerolog.Logger
}

type runStats struct {
	Processed int
	Skipped   int
	Clarified int
	Enriched  int
}

// Run categorizes and persists the transactions in date order. The first
// categorization or persistence fault aborts the run; everything already
// appended stays durable and is skipped on the next attempt.
func (e *Engine) Run(ctx context.Context, txns []Txn) (runStats, error) {
	var stats runStats
	sort.Sort(byTime(txns))

	for i := range txns {
		t := &txns[i]
		if e.store.Contains(t.Key) {
			stats.Skipped++
			e.log.Debug().Str("key", t.Key).Msg("already categorized, skipping")
			continue
		}

		clarified, enriched, err := e.categorize(ctx, t)
		if err != nil {
			return stats, err
		}
		if clarified {
			stats.Clarified++
		}
		if enriched {
			stats.Enriched++
		}

		if e.review != nil {
			e.review.confirm(t)
		}
		if !e.dryRun {
			if err := e.store.Append(*t); err != nil {
				return stats, errors.Wrapf(err, "persisting txn %s", t.Key)
			}
		}
		stats.Processed++
		e.log.Info().
			Str("key", t.Key).
			Str("account", t.AccountID).
			Str("path", t.AccountName).
			Msg("categorized")
	}
	return stats, nil
}

func (e *Engine) categorize(ctx context.Context, t *Txn) (clarified, enriched bool, err error) {
	receipts := e.enrich(ctx, t)
	enriched = len(receipts) > 0

	payload := buildPayload(t, e.chart.Outline(), e.suggest.hints(t.Desc()), receipts)

	res, err := e.classifier.Classify(ctx, payload)
	if err != nil {
		return false, enriched, &OracleError{Key: t.Key, Step: "classify", Err: err}
	}

	// The contract caps interactive cost at one round-trip per transaction:
	// only the first proposed question is ever asked.
	if len(res.Questions) > 0 {
		q := res.Questions[0]
		answer, err := e.answers.Ask(q)
		if err != nil {
			return false, enriched, errors.Wrapf(err, "clarifying txn %s", t.Key)
		}
		res, err = e.classifier.Resolve(ctx, payload, q, answer)
		if err != nil {
			return false, enriched, &OracleError{Key: t.Key, Step: "resolve", Err: err}
		}
		clarified = true
	}

	if err := e.assign(t, res.AccountID); err != nil {
		return clarified, enriched, err
	}
	return clarified, enriched, nil
}

// assign resolves the oracle's account id against the chart. The resolved
// path is authoritative; the oracle's name field is advisory only.
func (e *Engine) assign(t *Txn, accountID string) error {
	node, ok := e.chart.ResolveByID(accountID)
	if !ok {
		return &OracleError{Key: t.Key, Step: "classify",
			Err: errors.Errorf("account id %q not in chart", accountID)}
	}
	if !node.Leaf() {
		return &OracleError{Key: t.Key, Step: "classify",
			Err: errors.Errorf("account %q is a group, postings go to leaf accounts", accountID)}
	}
	path, _ := e.chart.FullPath(accountID)
	t.AccountID = accountID
	t.AccountName = path
	t.Category = path
	return nil
}

// enrich runs the best-effort receipt extraction for every receipt-URL
// field. Failures are cached as null and swallowed; categorization proceeds
// on the remaining fields.
func (e *Engine) enrich(ctx context.Context, t *Txn) []*Receipt {
	fields := receiptFields(t.Extras)
	if len(fields) == 0 || e.cache == nil {
		return nil
	}

	txnID := t.ExternalID
	if txnID == "" {
		txnID = t.Key
	}

	var receipts []*Receipt
	for _, f := range fields {
		key := receiptCacheKey(txnID, f.Name)
		if r, hit := e.cache.Get(key); hit {
			if r != nil {
				receipts = append(receipts, r)
			}
			continue
		}
		r, err := e.extract(ctx, f.Value)
		if err != nil {
			ee := &EnrichmentError{Key: t.Key, Field: f.Name, Err: err}
			e.log.Warn().Err(ee).Msg("receipt extraction failed, continuing without it")
			r = nil
		}
		if err := e.cache.Put(key, r); err != nil {
			e.log.Warn().Err(err).Msg("unable to update receipt cache")
		}
		if r != nil {
			receipts = append(receipts, r)
		}
	}
	return receipts
}

func (e *Engine) extract(ctx context.Context, url string) (*Receipt, error) {
	data, mime, err := e.normalizer.Normalize(ctx, url)
	if err != nil {
		return nil, err
	}
	return e.classifier.ExtractReceipt(ctx, data, mime)
}
