package main

import (
	"context"
	"encoding/csv"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const columnSampleRows = 5

// loadCSV reads a ledger CSV export into transaction records. Header names
// vary wildly across exports, so the oracle names the date and amount
// columns; every other column is preserved verbatim, in source order, as an
// extra field.
func loadCSV(ctx context.Context, path string, cl Classifier, log zerolog.Logger) ([]Txn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errIO, "unable to read csv file %s: %v", path, err)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(errInput, "csv file %s is empty", path)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errInput, "unable to parse csv file %s: %v", path, err)
	}
	if len(records) < 2 {
		return nil, errors.Wrapf(errInput, "csv file %s has no data rows", path)
	}
	header := records[0]
	rows := records[1:]

	samples := rows
	if len(samples) > columnSampleRows {
		samples = samples[:columnSampleRows]
	}
	guess, err := cl.IdentifyColumns(ctx, header, samples)
	if err != nil {
		return nil, &OracleError{Step: "columns", Err: err}
	}
	log.Debug().Str("date", guess.DateColumn).Str("amount", guess.AmountColumn).Msg("columns identified")

	dateIdx := columnIndex(header, guess.DateColumn)
	amountIdx := columnIndex(header, guess.AmountColumn)
	if dateIdx < 0 || amountIdx < 0 {
		return nil, errors.Wrapf(errInput, "identified columns %q/%q not in header %v",
			guess.DateColumn, guess.AmountColumn, header)
	}

	txns := make([]Txn, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(header) {
			return nil, errors.Wrapf(errInput, "row has %d columns, header has %d", len(row), len(header))
		}
		date, err := parseTxnDate(row[dateIdx])
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(row[amountIdx])
		if err != nil {
			return nil, err
		}
		var extras []Field
		for i, col := range row {
			if i == dateIdx || i == amountIdx {
				continue
			}
			extras = append(extras, Field{Name: header[i], Value: col})
		}
		txns = append(txns, Txn{
			Key:        deriveKey(date, amount, extras),
			ExternalID: externalID(extras),
			Date:       date,
			Amount:     amount,
			Extras:     extras,
		})
	}
	log.Info().Int("transactions", len(txns)).Str("file", path).Msg("csv loaded")
	return txns, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}
