package projections

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"ctbadmin/internal/domain/catalog"
)

// previewRenderer renders the pricing card. Raw HTML in user text is escaped
// because WithUnsafe is not set.
var previewRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// PricingItem is one package line on the pricing card.
type PricingItem struct {
	Label    string  `json:"label"`
	Price    float64 `json:"price"`
	Duration string  `json:"duration,omitempty"`
}

// PricingPreview is the pricing card the public site shows for a location.
type PricingPreview struct {
	Title  string        `json:"title"`
	D1     string        `json:"d1"`
	D2     string        `json:"d2"`
	Sub    string        `json:"sub"`
	Hidden bool          `json:"hidden"`
	Items  []PricingItem `json:"items"`
}

// BuildPricingPreview computes the card for a location of an activity. The
// title falls back from the override to the activity name, then "Titre".
func BuildPricingPreview(activityName string, loc catalog.Location) PricingPreview {
	title := strings.TrimSpace(loc.PricingTitleOverride)
	if title == "" {
		title = strings.TrimSpace(activityName)
	}
	if title == "" {
		title = "Titre"
	}
	p := PricingPreview{
		Title:  title,
		D1:     loc.PricingDescription1,
		D2:     loc.PricingDescription2,
		Sub:    loc.PricingSubtext,
		Hidden: loc.PricingHidden,
		Items:  []PricingItem{},
	}
	for _, s := range loc.Sessions {
		item := PricingItem{Label: s.Label, Price: float64(s.Price), Duration: s.DurationText}
		if item.Duration == "" && s.DurationMinutes > 0 {
			item.Duration = strconv.Itoa(int(s.DurationMinutes)) + " min"
		}
		p.Items = append(p.Items, item)
	}
	return p
}

// GetPricingPreviewQuery selects the location to preview.
type GetPricingPreviewQuery struct {
	Domain     catalog.Domain
	ActivityID catalog.ID
	TypeKey    string // empty selects the first type
	Location   int
}

// GetPricingPreviewDeps holds dependencies for GetPricingPreview.
type GetPricingPreviewDeps struct {
	Catalog CatalogReader
}

// QueryGetPricingPreview loads an activity and builds the card of one location.
// PRE: ActivityID exists in Domain
// POST: Returns catalog.ErrActivityNotFound, ErrUnknownType or
// ErrLocationOutOfRange when the selection does not exist
func QueryGetPricingPreview(ctx context.Context, query GetPricingPreviewQuery, deps GetPricingPreviewDeps) (PricingPreview, error) {
	c, err := deps.Catalog.GetCatalog(ctx, query.Domain)
	if err != nil {
		return PricingPreview{}, fmt.Errorf("load catalog: %w", err)
	}
	a, err := c.Find(query.ActivityID)
	if err != nil {
		return PricingPreview{}, err
	}

	var t *catalog.Type
	if query.TypeKey == "" && len(a.Types) > 0 {
		t = &a.Types[0]
	} else {
		t = a.TypeByKey(query.TypeKey)
	}
	if t == nil {
		return PricingPreview{}, catalog.ErrUnknownType
	}
	if query.Location < 0 || query.Location >= len(t.Locations) {
		return PricingPreview{}, catalog.ErrLocationOutOfRange
	}
	return BuildPricingPreview(a.Name, t.Locations[query.Location]), nil
}

// RenderPricingPreviewHTML renders the card as an HTML fragment.
func RenderPricingPreviewHTML(p PricingPreview) (string, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "### %s\n\n", orDash(p.Title))
	fmt.Fprintf(&md, "%s\n\n", orDash(p.D1))
	fmt.Fprintf(&md, "%s\n\n", orDash(p.D2))
	if len(p.Items) == 0 {
		md.WriteString("- —\n")
	}
	for _, it := range p.Items {
		fmt.Fprintf(&md, "- %s : %s $", orDash(it.Label), strconv.FormatFloat(it.Price, 'f', -1, 64))
		if it.Duration != "" {
			fmt.Fprintf(&md, " (%s)", it.Duration)
		}
		md.WriteString("\n")
	}
	if p.Sub != "" {
		fmt.Fprintf(&md, "\n*%s*\n", p.Sub)
	}

	var buf bytes.Buffer
	if err := previewRenderer.Convert([]byte(md.String()), &buf); err != nil {
		return "", fmt.Errorf("render pricing preview: %w", err)
	}
	return buf.String(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
