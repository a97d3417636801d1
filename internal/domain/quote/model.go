package quote

import (
	"errors"
	"strings"
)

// Domain errors
var (
	ErrUnknownSection = errors.New("unknown quote section")
	ErrEmptyText      = errors.New("quote text is required")
)

// Section is a page of the public site that displays a quote.
type Section struct {
	Key   string
	Label string
}

// Sections lists every quote section in display order.
var Sections = []Section{
	{Key: "home", Label: "Page Principale"},
	{Key: "therapiesAlternatives", Label: "Thérapies Alternatives"},
	{Key: "sophrologie", Label: "Sophrologie"},
	{Key: "respirationConsciente", Label: "Respiration consciente"},
	{Key: "relationAide", Label: "Relation d'aide"},
	{Key: "soinsEnergetiques", Label: "Soins énergétiques"},
	{Key: "reiki", Label: "Reiki"},
	{Key: "developpementPersonnel", Label: "Développement personnel"},
	{Key: "consultationEntreprise", Label: "Consultation entreprise"},
}

// Quotes maps a section key to its current text.
type Quotes map[string]string

// Lookup returns the section with the given key.
func Lookup(key string) (Section, bool) {
	for _, s := range Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// Validate checks an update before it is sent.
// PRE: none
// POST: Returns the trimmed text, or ErrUnknownSection / ErrEmptyText
func Validate(key, text string) (string, error) {
	if _, ok := Lookup(key); !ok {
		return "", ErrUnknownSection
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
