package newsletter_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ctbadmin/internal/domain/newsletter"
)

// TestParseSegment tests segment validation.
func TestParseSegment(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "", want: "all"},
		{in: "arts", want: "arts"},
		{in: " therapy ", want: "therapy"},
		{in: "yoga", wantErr: newsletter.ErrInvalidSegment},
	}
	for _, tt := range tests {
		got, err := newsletter.ParseSegment(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseSegment(%q) error = %v, want %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestParseCSV tests reading backend exports.
func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{name: "single column", input: "email\na@x.ca\nb@x.ca\n", want: []string{"a@x.ca", "b@x.ca"}},
		{name: "email not first", input: "createdAt,Email\n2026-01-01,a@x.ca\n2026-01-02,\n", want: []string{"a@x.ca"}},
		{name: "bom header", input: "\ufeffemail\na@x.ca\n", want: []string{"a@x.ca"}},
		{name: "empty", input: "", want: nil},
		{name: "no email column", input: "name\nBob\n", wantErr: newsletter.ErrNoEmailColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := newsletter.ParseCSV(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseCSV() error = %v, want %v", err, tt.wantErr)
			}
			got := newsletter.Emails(subs)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("emails = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestWriteCSV verifies the written file parses back.
func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	in := []newsletter.Subscriber{{Email: "a@x.ca"}, {Email: "b@x.ca"}}
	if err := newsletter.WriteCSV(&buf, in); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != "email\na@x.ca\nb@x.ca\n" {
		t.Errorf("csv = %q", buf.String())
	}
}
