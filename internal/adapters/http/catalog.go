package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"ctbadmin/internal/domain/catalog"
)

type activityPayload struct {
	Domain catalog.Domain `json:"domain"`
	Slug   string         `json:"slug"`
	Name   string         `json:"name"`
	Image  string         `json:"image"`
}

type typePayload struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type locationPayload struct {
	Key                  string  `json:"key"`
	Name                 string  `json:"name"`
	External             bool    `json:"external"`
	Flexible             bool    `json:"flexible"`
	Link                 *string `json:"link"`
	Phone                *string `json:"phone"`
	ExactLocation        *string `json:"exactLocation"`
	PricingTitleOverride *string `json:"pricingTitleOverride"`
	PricingDescription1  *string `json:"pricingDescription1"`
	PricingDescription2  *string `json:"pricingDescription2"`
	PricingSubtext       *string `json:"pricingSubtext"`
	PricingHidden        bool    `json:"pricingHidden"`
}

type slotPayload struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type sessionPayload struct {
	PublicID        string  `json:"publicId"`
	Label           string  `json:"label"`
	Price           float64 `json:"price"`
	DurationMinutes *int    `json:"durationMinutes"`
	DurationText    *string `json:"durationText"`
	Order           int     `json:"order"`
}

// nullable maps "" to JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toLocationPayload(f catalog.LocationFields) locationPayload {
	return locationPayload{
		Key:                  f.Key,
		Name:                 f.Name,
		External:             f.External,
		Flexible:             f.Flexible,
		Link:                 nullable(f.Link),
		Phone:                nullable(f.Phone),
		ExactLocation:        nullable(f.ExactLocation),
		PricingTitleOverride: nullable(f.PricingTitleOverride),
		PricingDescription1:  nullable(f.PricingDescription1),
		PricingDescription2:  nullable(f.PricingDescription2),
		PricingSubtext:       nullable(f.PricingSubtext),
		PricingHidden:        f.PricingHidden,
	}
}

func toSessionPayload(f catalog.SessionFields) sessionPayload {
	p := sessionPayload{
		PublicID:     f.PublicID,
		Label:        f.Label,
		Price:        f.Price,
		DurationText: nullable(f.DurationText),
		Order:        f.Order,
	}
	if f.DurationMinutes > 0 {
		m := f.DurationMinutes
		p.DurationMinutes = &m
	}
	return p
}

// GetCatalog fetches the full tree of a domain and marks it loaded, so every
// node carries the baseline later used to compute what changed.
// PRE: domain is valid
// POST: Returns the catalog with Domain set
func (c *Client) GetCatalog(ctx context.Context, domain catalog.Domain) (catalog.Catalog, error) {
	var body struct {
		Activities []catalog.Activity `json:"activities"`
		Data       *struct {
			Activities []catalog.Activity `json:"activities"`
		} `json:"data"`
	}
	path := "/admin/catalog?domain=" + url.QueryEscape(string(domain))
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return catalog.Catalog{}, err
	}
	out := catalog.Catalog{Domain: domain, Activities: body.Activities}
	if out.Activities == nil && body.Data != nil {
		out.Activities = body.Data.Activities
	}
	out.MarkLoaded()
	return out, nil
}

// CreateActivity creates an activity shell in a domain.
func (c *Client) CreateActivity(ctx context.Context, domain catalog.Domain, f catalog.ActivityFields) (catalog.ID, error) {
	return c.create(ctx, "/admin/catalog/activities", activityPayload{
		Domain: domain,
		Slug:   f.Slug,
		Name:   f.Name,
		Image:  f.Image,
	})
}

// UpdateActivity renames an activity. Slug, image and order stay server-owned.
func (c *Client) UpdateActivity(ctx context.Context, id catalog.ID, name string) error {
	return c.do(ctx, http.MethodPut, "/admin/catalog/activities/"+seg(id), map[string]string{"name": name}, nil)
}

// DeleteActivity removes an activity and, server-side, its subtree.
func (c *Client) DeleteActivity(ctx context.Context, id catalog.ID) error {
	return c.do(ctx, http.MethodDelete, "/admin/catalog/activities/"+seg(id), nil, nil)
}

// CreateType adds a type under an activity.
func (c *Client) CreateType(ctx context.Context, activityID catalog.ID, f catalog.TypeFields) (catalog.ID, error) {
	return c.create(ctx, fmt.Sprintf("/admin/catalog/activities/%s/types", seg(activityID)), typePayload{Key: f.Key, Label: f.Label})
}

// CreateLocation adds a location under a type.
func (c *Client) CreateLocation(ctx context.Context, typeID catalog.ID, f catalog.LocationFields) (catalog.ID, error) {
	return c.create(ctx, fmt.Sprintf("/admin/catalog/types/%s/locations", seg(typeID)), toLocationPayload(f))
}

// UpdateLocation replaces the attributes of a location.
func (c *Client) UpdateLocation(ctx context.Context, id catalog.ID, f catalog.LocationFields) error {
	return c.do(ctx, http.MethodPut, "/admin/catalog/locations/"+seg(id), toLocationPayload(f), nil)
}

// DeleteLocation removes a location and its slots and sessions.
func (c *Client) DeleteLocation(ctx context.Context, id catalog.ID) error {
	return c.do(ctx, http.MethodDelete, "/admin/catalog/locations/"+seg(id), nil, nil)
}

// CreateSlot adds a weekly slot under a location.
func (c *Client) CreateSlot(ctx context.Context, locationID catalog.ID, f catalog.SlotFields) (catalog.ID, error) {
	return c.create(ctx, fmt.Sprintf("/admin/catalog/locations/%s/slots", seg(locationID)), slotPayload{Day: f.Day, Time: f.Time})
}

// UpdateSlot replaces a slot.
func (c *Client) UpdateSlot(ctx context.Context, id catalog.ID, f catalog.SlotFields) error {
	return c.do(ctx, http.MethodPut, "/admin/catalog/slots/"+seg(id), slotPayload{Day: f.Day, Time: f.Time}, nil)
}

// DeleteSlot removes a slot.
func (c *Client) DeleteSlot(ctx context.Context, id catalog.ID) error {
	return c.do(ctx, http.MethodDelete, "/admin/catalog/slots/"+seg(id), nil, nil)
}

// CreateSession adds a priced session under a location.
func (c *Client) CreateSession(ctx context.Context, locationID catalog.ID, f catalog.SessionFields) (catalog.ID, error) {
	return c.create(ctx, fmt.Sprintf("/admin/catalog/locations/%s/sessions", seg(locationID)), toSessionPayload(f))
}

// UpdateSession replaces a session.
func (c *Client) UpdateSession(ctx context.Context, id catalog.ID, f catalog.SessionFields) error {
	return c.do(ctx, http.MethodPut, "/admin/catalog/sessions/"+seg(id), toSessionPayload(f), nil)
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id catalog.ID) error {
	return c.do(ctx, http.MethodDelete, "/admin/catalog/sessions/"+seg(id), nil, nil)
}
