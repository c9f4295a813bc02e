package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const fetchPageSize = 100

// requestBudget rations a fixed number of requests over a fixed window.
// When the budget is spent the caller blocks until the window resets and
// the full budget refills; this is deliberately not a token bucket.
type requestBudget struct {
	limit  int
	window time.Duration
	used   int
	reset  time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func newRequestBudget(limit int, window time.Duration) *requestBudget {
	return &requestBudget{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Wait blocks until a request may be sent. Never fails.
func (b *requestBudget) Wait() {
	if b == nil || b.limit <= 0 {
		return
	}
	now := b.now()
	if !now.Before(b.reset) {
		b.used = 0
		b.reset = now.Add(b.window)
	}
	if b.used >= b.limit {
		b.sleep(b.reset.Sub(now))
		b.used = 0
		b.reset = b.now().Add(b.window)
	}
	b.used++
}

// LedgerClient fetches transactions from the remote ledger API: paginated
// GET over transactions with a nested GET per transaction for receipts.
type LedgerClient struct {
	baseURL string
	token   string
	http    *http.Client
	budget  *requestBudget
	log     zerolog.Logger
}

func NewLedgerClient(baseURL, token string, budget *requestBudget, log zerolog.Logger) *LedgerClient {
	return &LedgerClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		budget:  budget,
		log:     log.With().Str("source", "ledger-api").Logger(),
	}
}

type apiTxn struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Merchant    string      `json:"merchant"`
	Status      string      `json:"status"`
}

type txnPage struct {
	Transactions []apiTxn `json:"transactions"`
	HasMore      bool     `json:"has_more"`
}

type apiReceipt struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
}

type receiptList struct {
	Receipts []apiReceipt `json:"receipts"`
}

func (c *LedgerClient) get(ctx context.Context, path string, out any) error {
	c.budget.Wait()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("ledger API error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchTransactions walks the cursor pagination: the cursor is the last
// item id of the previous page, and the walk ends when the source reports
// no further pages. On a mid-walk failure the pages already fetched are
// returned alongside the error so the caller can cache them; the next run
// then categorizes from the cache instead of refetching from page one.
func (c *LedgerClient) FetchTransactions(ctx context.Context) ([]Txn, error) {
	var txns []Txn
	cursor := ""
	for {
		path := fmt.Sprintf("/transactions?limit=%d", fetchPageSize)
		if cursor != "" {
			path += "&starting_after=" + url.QueryEscape(cursor)
		}
		var page txnPage
		if err := c.get(ctx, path, &page); err != nil {
			return txns, errors.Wrap(err, "fetching transactions page")
		}
		if len(page.Transactions) == 0 {
			break
		}

		for _, at := range page.Transactions {
			t, err := c.toTxn(ctx, at)
			if err != nil {
				return txns, err
			}
			txns = append(txns, t)
		}
		cursor = page.Transactions[len(page.Transactions)-1].ID
		c.log.Debug().Int("fetched", len(txns)).Str("cursor", cursor).Msg("page complete")
		if !page.HasMore {
			break
		}
	}
	c.log.Info().Int("transactions", len(txns)).Msg("remote fetch complete")
	return txns, nil
}

func (c *LedgerClient) toTxn(ctx context.Context, at apiTxn) (Txn, error) {
	date, err := parseTxnDate(at.Date)
	if err != nil {
		return Txn{}, errors.Wrapf(err, "txn %s", at.ID)
	}
	amount, err := parseAmount(at.Amount.String())
	if err != nil {
		return Txn{}, errors.Wrapf(err, "txn %s", at.ID)
	}

	extras := []Field{
		{Name: "id", Value: at.ID},
		{Name: "description", Value: at.Description},
		{Name: "merchant", Value: at.Merchant},
		{Name: "status", Value: at.Status},
	}

	var rl receiptList
	if err := c.get(ctx, "/transactions/"+url.PathEscape(at.ID)+"/receipts", &rl); err != nil {
		return Txn{}, errors.Wrapf(err, "fetching receipts for txn %s", at.ID)
	}
	for i, r := range rl.Receipts {
		name := "receipt_url"
		if i > 0 {
			name = fmt.Sprintf("receipt_url_%d", i+1)
		}
		extras = append(extras, Field{Name: name, Value: r.URL})
	}

	return Txn{
		Key:        at.ID,
		ExternalID: at.ID,
		Date:       date,
		Amount:     amount,
		Extras:     extras,
	}, nil
}
