package projections

import (
	"context"
	"log/slog"

	"ctbadmin/internal/domain/quote"
)

// Quote row statuses.
const (
	QuoteStatusOK    = "ok"
	QuoteStatusEmpty = "empty"
	QuoteStatusError = "error"
)

// QuoteReader defines the fetch needed by GetQuoteBoard.
type QuoteReader interface {
	GetQuotes(ctx context.Context) (quote.Quotes, error)
}

// QuoteRow is one section of the quote board.
type QuoteRow struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Text    string `json:"text"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// GetQuoteBoardDeps holds dependencies for GetQuoteBoard.
type GetQuoteBoardDeps struct {
	API QuoteReader
}

// QueryGetQuoteBoard returns one row per known section. A failed fetch does
// not fail the board: every row carries status "error" and the message.
// POST: len(rows) == len(quote.Sections), in section order
func QueryGetQuoteBoard(ctx context.Context, deps GetQuoteBoardDeps) []QuoteRow {
	quotes, err := deps.API.GetQuotes(ctx)
	if err != nil {
		slog.Warn("content_event", "event", "quotes_fetch_failed", "error", err)
	}

	rows := make([]QuoteRow, 0, len(quote.Sections))
	for _, s := range quote.Sections {
		row := QuoteRow{Key: s.Key, Label: s.Label}
		switch {
		case err != nil:
			row.Status = QuoteStatusError
			row.Message = err.Error()
		case quotes[s.Key] == "":
			row.Status = QuoteStatusEmpty
		default:
			row.Text = quotes[s.Key]
			row.Status = QuoteStatusOK
		}
		rows = append(rows, row)
	}
	return rows
}
