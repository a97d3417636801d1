package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, strips diacritics and joins alphanumeric runs with '-'.
// PRE: none
// POST: Returns a string matching ^[a-z0-9]+(-[a-z0-9]+)*$ or ""
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		stripped = strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(stripped, "-"), "-")
}

// Fields returns the normalized attributes of the activity.
func (a *Activity) Fields() ActivityFields {
	name := strings.TrimSpace(a.Name)
	slug := strings.TrimSpace(a.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	return ActivityFields{Slug: slug, Name: name, Image: strings.TrimSpace(a.Image)}
}

// Fields returns the attributes sent when the type is created.
func (t *Type) Fields() TypeFields {
	return TypeFields{Key: t.Key, Label: TypeLabel(t.Key)}
}

// Fields returns the normalized attributes of the location.
func (l *Location) Fields() LocationFields {
	key := strings.TrimSpace(l.Key)
	if key == "" {
		key = DefaultLocationKey
	}
	return LocationFields{
		Key:                  key,
		Name:                 strings.TrimSpace(l.Name),
		External:             l.External,
		Flexible:             l.Flexible,
		Link:                 strings.TrimSpace(l.Link),
		Phone:                strings.TrimSpace(l.Phone),
		ExactLocation:        strings.TrimSpace(l.ExactLocation),
		PricingTitleOverride: strings.TrimSpace(l.PricingTitleOverride),
		PricingDescription1:  strings.TrimSpace(l.PricingDescription1),
		PricingDescription2:  strings.TrimSpace(l.PricingDescription2),
		PricingSubtext:       strings.TrimSpace(l.PricingSubtext),
		PricingHidden:        l.PricingHidden,
	}
}

// IsNamed reports whether the location is eligible for persistence.
func (l *Location) IsNamed() bool {
	return strings.TrimSpace(l.Name) != ""
}

// Fields returns the normalized attributes of the slot.
func (s *Slot) Fields() SlotFields {
	return SlotFields{Day: strings.TrimSpace(s.Day), Time: strings.TrimSpace(s.Time)}
}

// Fields returns the normalized attributes of the session.
func (s *Session) Fields() SessionFields {
	minutes := int(s.DurationMinutes)
	if minutes < 0 {
		minutes = 0
	}
	return SessionFields{
		PublicID:        strings.TrimSpace(s.PublicID),
		Label:           strings.TrimSpace(s.Label),
		Price:           float64(s.Price),
		DurationMinutes: minutes,
		DurationText:    strings.TrimSpace(s.DurationText),
		Order:           s.Order,
	}
}

// NamedLocations returns pointers to the locations that have a name.
// Unnamed locations are placeholders and are never persisted.
func (t *Type) NamedLocations() []*Location {
	var out []*Location
	for i := range t.Locations {
		if t.Locations[i].IsNamed() {
			out = append(out, &t.Locations[i])
		}
	}
	return out
}

// HasContent reports whether the type has at least one named location.
func (t *Type) HasContent() bool {
	return len(t.NamedLocations()) > 0
}

// EligibleSlots normalizes the slots in place and returns those with both a
// day and a time. Empty slots are discarded from synchronization.
func (l *Location) EligibleSlots() []*Slot {
	var out []*Slot
	for i := range l.Slots {
		s := &l.Slots[i]
		s.Day = strings.TrimSpace(s.Day)
		s.Time = strings.TrimSpace(s.Time)
		if s.Day != "" && s.Time != "" {
			out = append(out, s)
		}
	}
	return out
}

// EligibleSessions normalizes the sessions in place and returns those with a
// label and a public id. A missing public id falls back to "sess-<index>" once;
// after that it is carried by the node and never regenerated. A missing order
// defaults to the session's index.
func (l *Location) EligibleSessions() []*Session {
	var out []*Session
	for i := range l.Sessions {
		s := &l.Sessions[i]
		s.Label = strings.TrimSpace(s.Label)
		s.PublicID = strings.TrimSpace(s.PublicID)
		if s.PublicID == "" {
			s.PublicID = fmt.Sprintf("sess-%d", i)
		}
		if s.Price < 0 {
			s.Price = 0
		}
		if s.DurationMinutes < 0 {
			s.DurationMinutes = 0
		}
		if s.orderMissing || s.Order < 0 {
			s.Order = i
			s.orderMissing = false
		}
		if s.Label != "" {
			out = append(out, s)
		}
	}
	return out
}
