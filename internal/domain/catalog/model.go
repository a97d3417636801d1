package catalog

import (
	"errors"
	"sort"
)

// Catalog domains served by the backend.
const (
	DomainTherapies    Domain = "therapies"
	DomainMartialArts  Domain = "arts-martiaux"
	DefaultLocationKey        = "main"
)

// Type keys.
const (
	TypeGroup   = "group"
	TypePrivate = "private"
)

// ValidTypeKeys contains all valid type keys, in display order.
var ValidTypeKeys = []string{TypeGroup, TypePrivate}

// Domain errors
var (
	ErrInvalidDomain      = errors.New("domain must be 'therapies' or 'arts-martiaux'")
	ErrEmptyName          = errors.New("activity name is required")
	ErrNoNamedLocation    = errors.New("add at least one named option to a type")
	ErrInvalidTypeKey     = errors.New("type key must be 'group' or 'private'")
	ErrUnknownType        = errors.New("no such type in draft")
	ErrLocationOutOfRange = errors.New("location index out of range")
	ErrIndexOutOfRange    = errors.New("item index out of range")
	ErrActivityNotFound   = errors.New("activity not found in catalog")
)

// Domain identifies one of the two catalogs.
type Domain string

// ParseDomain validates a domain name.
// PRE: none
// POST: Returns the Domain or ErrInvalidDomain
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainTherapies, DomainMartialArts:
		return Domain(s), nil
	}
	return "", ErrInvalidDomain
}

// TypeLabel returns the label the backend expects for a type key.
func TypeLabel(key string) string {
	if key == TypeGroup {
		return "Cours de groupe"
	}
	return "Séance privée"
}

// Catalog is the full tree of activities for one domain.
type Catalog struct {
	Domain     Domain     `json:"domain,omitempty"`
	Activities []Activity `json:"activities"`
}

// Activity is a sellable offering shown in the catalog.
type Activity struct {
	Ref
	Name  string `json:"name"`
	Slug  string `json:"slug,omitempty"`
	Image string `json:"image,omitempty"`
	Order int    `json:"order"`
	Types []Type `json:"types"`

	base    ActivityFields
	hasBase bool
}

// Type is the delivery mode of an Activity (group or private).
type Type struct {
	Ref
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Order     int        `json:"order"`
	Locations []Location `json:"locations"`

	knownLocations []ID
}

// Location is a place or arrangement under a Type. The backend calls it an offer.
type Location struct {
	Ref
	Key                  string    `json:"key"`
	Name                 string    `json:"name"`
	External             bool      `json:"external"`
	Flexible             bool      `json:"flexible"`
	Link                 string    `json:"link,omitempty"`
	Phone                string    `json:"phone,omitempty"`
	ExactLocation        string    `json:"exactLocation,omitempty"`
	PricingTitleOverride string    `json:"pricingTitleOverride,omitempty"`
	PricingDescription1  string    `json:"pricingDescription1,omitempty"`
	PricingDescription2  string    `json:"pricingDescription2,omitempty"`
	PricingSubtext       string    `json:"pricingSubtext,omitempty"`
	PricingHidden        bool      `json:"pricingHidden"`
	Slots                []Slot    `json:"slots"`
	Sessions             []Session `json:"sessions"`

	base          LocationFields
	hasBase       bool
	knownSlots    []ID
	knownSessions []ID
}

// Slot is a recurring weekly time window. Day and time are free text.
type Slot struct {
	Ref
	Day  string `json:"day"`
	Time string `json:"time"`

	base    SlotFields
	hasBase bool
}

// Session is a priced package ("forfait") attached to a Location.
// PublicID is independent of the server ID and must stay stable across edits.
type Session struct {
	Ref
	PublicID        string  `json:"publicId"`
	Label           string  `json:"label"`
	Price           Price   `json:"price"`
	DurationMinutes Minutes `json:"durationMinutes"`
	DurationText    string  `json:"durationText,omitempty"`
	Order           int     `json:"order"`

	orderMissing bool
	base         SessionFields
	hasBase      bool
}

// ActivityFields are the editable activity attributes sent to the backend.
type ActivityFields struct {
	Slug  string
	Name  string
	Image string
}

// TypeFields are the type attributes sent on creation.
type TypeFields struct {
	Key   string
	Label string
}

// LocationFields are the normalized location attributes sent to the backend.
// Empty optional strings are transmitted as null.
type LocationFields struct {
	Key                  string
	Name                 string
	External             bool
	Flexible             bool
	Link                 string
	Phone                string
	ExactLocation        string
	PricingTitleOverride string
	PricingDescription1  string
	PricingDescription2  string
	PricingSubtext       string
	PricingHidden        bool
}

// SlotFields are the normalized slot attributes.
type SlotFields struct {
	Day  string
	Time string
}

// SessionFields are the normalized session attributes.
// DurationMinutes 0 and DurationText "" mean absent.
type SessionFields struct {
	PublicID        string
	Label           string
	Price           float64
	DurationMinutes int
	DurationText    string
	Order           int
}

// IsValidTypeKey reports whether key is group or private.
func IsValidTypeKey(key string) bool {
	for _, k := range ValidTypeKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Find returns the activity with the given id.
// PRE: id is non-empty
// POST: Returns the activity or ErrActivityNotFound
func (c Catalog) Find(id ID) (Activity, error) {
	for _, a := range c.Activities {
		if a.ID == id {
			return a, nil
		}
	}
	return Activity{}, ErrActivityNotFound
}

// FindBySlug returns the activity with the given slug.
func (c Catalog) FindBySlug(slug string) (Activity, error) {
	for _, a := range c.Activities {
		if a.Slug == slug {
			return a, nil
		}
	}
	return Activity{}, ErrActivityNotFound
}

// Sorted returns the activities ordered by their display order, stable on ties.
func (c Catalog) Sorted() []Activity {
	out := make([]Activity, len(c.Activities))
	copy(out, c.Activities)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// TypeByKey returns a pointer into the activity's types, or nil.
func (a *Activity) TypeByKey(key string) *Type {
	for i := range a.Types {
		if a.Types[i].Key == key {
			return &a.Types[i]
		}
	}
	return nil
}
