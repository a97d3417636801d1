package newsletter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Subscriber segments.
const (
	SegmentAll     = "all"
	SegmentArts    = "arts"
	SegmentTherapy = "therapy"
)

// FilterKey is the local preference key holding the last used segment.
const FilterKey = "newsletter_filter"

// Domain errors
var (
	ErrInvalidSegment = errors.New("segment must be 'all', 'arts' or 'therapy'")
	ErrNoEmailColumn  = errors.New("csv has no email column")
)

// Segment is a named subscriber list.
type Segment struct {
	Key   string
	Label string
}

// Segments lists the subscriber lists in display order.
var Segments = []Segment{
	{Key: SegmentAll, Label: "Tous les abonnés"},
	{Key: SegmentArts, Label: "Arts martiaux"},
	{Key: SegmentTherapy, Label: "Thérapies alternatives"},
}

// ParseSegment validates a segment key. Empty means all.
// PRE: none
// POST: Returns a valid key or ErrInvalidSegment
func ParseSegment(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SegmentAll, nil
	}
	for _, seg := range Segments {
		if seg.Key == s {
			return s, nil
		}
	}
	return "", ErrInvalidSegment
}

// Subscriber is one newsletter address.
type Subscriber struct {
	Email string `json:"email"`
}

// Emails returns the addresses in list order.
func Emails(subs []Subscriber) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Email)
	}
	return out
}

// ParseCSV reads an export produced by the backend. The email column is found
// by header name; blank rows are skipped.
// PRE: r yields CSV with a header row
// POST: Returns subscribers in file order
func ParseCSV(r io.Reader) ([]Subscriber, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), "email") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrNoEmailColumn
	}

	var subs []Subscriber
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		if email := strings.TrimSpace(rec[col]); email != "" {
			subs = append(subs, Subscriber{Email: email})
		}
	}
	return subs, nil
}

// WriteCSV writes subscribers with a single email column.
func WriteCSV(w io.Writer, subs []Subscriber) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"email"}); err != nil {
		return err
	}
	for _, s := range subs {
		if err := cw.Write([]string{s.Email}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename returns the attachment name used for a segment export.
func ExportFilename(segment string) string {
	return "newsletter-" + segment + ".csv"
}
