package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"ctbadmin/internal/domain/quote"
)

// QuoteWriter defines the call needed by UpdateQuote.
type QuoteWriter interface {
	UpdateQuote(ctx context.Context, key, text string) error
}

// UpdateQuoteInput carries input for the update-quote orchestrator.
type UpdateQuoteInput struct {
	Section string
	Text    string
}

// UpdateQuoteDeps holds dependencies for UpdateQuote.
type UpdateQuoteDeps struct {
	API QuoteWriter
}

// ExecuteUpdateQuote replaces the text of one quote section.
// PRE: none
// POST: Returns quote.ErrUnknownSection or quote.ErrEmptyText without a call;
// otherwise the trimmed text is stored
func ExecuteUpdateQuote(ctx context.Context, input UpdateQuoteInput, deps UpdateQuoteDeps) (string, error) {
	text, err := quote.Validate(input.Section, input.Text)
	if err != nil {
		return "", err
	}
	if err := deps.API.UpdateQuote(ctx, input.Section, text); err != nil {
		return "", fmt.Errorf("update quote %s: %w", input.Section, err)
	}
	slog.Info("content_event", "event", "quote_updated", "section", input.Section, "length", len(text))
	return text, nil
}
