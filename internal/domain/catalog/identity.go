package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID is a server-assigned identifier. The backend may send it as a JSON number
// or a string; both decode to the same value.
type ID string

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id == "" }

// String returns the id as a path segment.
func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes null for an unset id.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// Ref carries the identity of a catalog node. A node is either pending
// (no ID yet, identified by a client-only DraftKey) or persisted (ID set).
type Ref struct {
	ID       ID     `json:"id"`
	DraftKey string `json:"draftKey,omitempty"`
}

// NewPendingRef returns a Ref for a node that only exists client-side.
func NewPendingRef() Ref {
	return Ref{DraftKey: uuid.New().String()}
}

// IsPending reports whether the node has not been persisted yet.
func (r Ref) IsPending() bool { return r.ID == "" }

// Identity returns the server id (empty while pending).
func (r Ref) Identity() ID { return r.ID }

// Price is a non-negative amount decoded leniently: numbers and numeric strings
// are accepted, anything else becomes 0.
type Price float64

// UnmarshalJSON coerces the input to a number, defaulting to 0.
func (p *Price) UnmarshalJSON(b []byte) error {
	*p = Price(coerceFloat(b))
	return nil
}

// Minutes is an optional duration in minutes. Zero means absent.
type Minutes int

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
func (m *Minutes) UnmarshalJSON(b []byte) error {
	*m = Minutes(int(coerceFloat(b)))
	return nil
}

// MarshalJSON writes null when absent.
func (m Minutes) MarshalJSON() ([]byte, error) {
	if m <= 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(m))), nil
}

// UnmarshalJSON decodes a session leniently. An order that is absent or not
// numeric is remembered as missing so normalization can default it to the
// session's position.
func (s *Session) UnmarshalJSON(b []byte) error {
	type plain Session
	aux := struct {
		*plain
		Order json.RawMessage `json:"order"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	order, ok := parseFloat(aux.Order)
	s.Order = int(order)
	s.orderMissing = !ok
	return nil
}

// coerceFloat parses a JSON scalar into a finite float, or 0.
func coerceFloat(b []byte) float64 {
	f, _ := parseFloat(b)
	return f
}

// parseFloat reports whether a JSON scalar holds a finite number.
func parseFloat(b []byte) (float64, bool) {
	s := strings.TrimSpace(string(b))
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParsePrice coerces free-form text to a price, defaulting to 0.
func ParsePrice(s string) Price {
	return Price(coerceFloat([]byte(s)))
}

// shortKey returns the first eight characters of a fresh UUID.
func shortKey() string {
	return uuid.New().String()[:8]
}
