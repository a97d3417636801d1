package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ctbadmin/internal/adapters/email"
	"ctbadmin/internal/adapters/storage/kv"
	"ctbadmin/internal/domain/newsletter"
)

// NewsletterAPI defines the backend calls needed by the newsletter orchestrators.
type NewsletterAPI interface {
	ListSubscribers(ctx context.Context, segment string) ([]newsletter.Subscriber, error)
	ExportSubscribers(ctx context.Context, segment string) ([]byte, error)
}

// --- List Subscribers ---

// ListSubscribersInput carries input for the list-subscribers orchestrator.
// An empty Segment reuses the last one chosen.
type ListSubscribersInput struct {
	Segment string
}

// ListSubscribersResult carries a segment listing.
type ListSubscribersResult struct {
	Segment     string
	Subscribers []newsletter.Subscriber
}

// ListSubscribersDeps holds dependencies for ListSubscribers.
type ListSubscribersDeps struct {
	API   NewsletterAPI
	Prefs kv.Store
}

// ExecuteListSubscribers lists a segment and remembers it as the current filter.
// PRE: none
// POST: The resolved segment is persisted under newsletter.FilterKey
func ExecuteListSubscribers(ctx context.Context, input ListSubscribersInput, deps ListSubscribersDeps) (ListSubscribersResult, error) {
	raw := input.Segment
	if raw == "" && deps.Prefs != nil {
		if saved, err := deps.Prefs.Get(ctx, newsletter.FilterKey); err == nil {
			raw = saved
		} else if !errors.Is(err, kv.ErrNotFound) {
			slog.Warn("newsletter_event", "event", "filter_unreadable", "error", err)
		}
	}
	segment, err := newsletter.ParseSegment(raw)
	if err != nil {
		if input.Segment != "" {
			return ListSubscribersResult{}, err
		}
		segment = newsletter.SegmentAll
	}

	subs, err := deps.API.ListSubscribers(ctx, segment)
	if err != nil {
		return ListSubscribersResult{}, fmt.Errorf("list subscribers %s: %w", segment, err)
	}
	if deps.Prefs != nil {
		if err := deps.Prefs.Set(ctx, newsletter.FilterKey, segment); err != nil {
			slog.Warn("newsletter_event", "event", "filter_persist_failed", "error", err)
		}
	}
	return ListSubscribersResult{Segment: segment, Subscribers: subs}, nil
}

// --- Export Subscribers ---

// ExportSubscribersInput carries input for the export orchestrator.
type ExportSubscribersInput struct {
	Segment string
	Out     io.Writer // receives the CSV; may be nil when only mailing
	MailTo  string    // optional recipient of the CSV as an attachment
}

// ExportSubscribersResult describes the export.
type ExportSubscribersResult struct {
	Segment   string
	Filename  string
	Rows      int
	MessageID string
}

// ExportSubscribersDeps holds dependencies for ExportSubscribers.
type ExportSubscribersDeps struct {
	API    NewsletterAPI
	Sender email.Sender
}

// ExecuteExportSubscribers downloads the CSV export of a segment, writes it to
// Out and optionally mails it.
// PRE: Out or MailTo is set
// POST: The CSV is written unchanged; Rows counts the parsed addresses
func ExecuteExportSubscribers(ctx context.Context, input ExportSubscribersInput, deps ExportSubscribersDeps) (ExportSubscribersResult, error) {
	if input.Out == nil && input.MailTo == "" {
		return ExportSubscribersResult{}, errors.New("an output or a mail recipient is required")
	}
	segment, err := newsletter.ParseSegment(input.Segment)
	if err != nil {
		return ExportSubscribersResult{}, err
	}

	data, err := deps.API.ExportSubscribers(ctx, segment)
	if err != nil {
		return ExportSubscribersResult{}, fmt.Errorf("export subscribers %s: %w", segment, err)
	}
	subs, err := newsletter.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return ExportSubscribersResult{}, fmt.Errorf("export subscribers %s: %w", segment, err)
	}

	result := ExportSubscribersResult{
		Segment:  segment,
		Filename: newsletter.ExportFilename(segment),
		Rows:     len(subs),
	}
	if input.Out != nil {
		if _, err := input.Out.Write(data); err != nil {
			return ExportSubscribersResult{}, fmt.Errorf("write export: %w", err)
		}
	}

	if input.MailTo != "" {
		if deps.Sender == nil {
			return result, errors.New("no email sender configured")
		}
		res, err := deps.Sender.Send(ctx, email.SendRequest{
			To:      []string{input.MailTo},
			Subject: fmt.Sprintf("Export newsletter (%s) : %d abonnés", segment, len(subs)),
			Text:    fmt.Sprintf("Ci-joint l'export du segment %s (%d adresses).", segment, len(subs)),
			Attachments: []email.Attachment{{
				Filename: result.Filename,
				Content:  data,
			}},
		})
		if err != nil {
			return result, fmt.Errorf("mail export: %w", err)
		}
		result.MessageID = res.MessageID
	}

	slog.Info("newsletter_event", "event", "export", "segment", segment, "rows", result.Rows, "mailed", result.MessageID != "")
	return result, nil
}
