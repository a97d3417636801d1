package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"ctbadmin/internal/domain/capsule"
	"ctbadmin/internal/domain/catalog"
	"ctbadmin/internal/domain/newsletter"
	"ctbadmin/internal/domain/quote"
)

// GetQuotes returns the text of every section. The backend may wrap the map in
// {"data": …}.
func (c *Client) GetQuotes(ctx context.Context) (quote.Quotes, error) {
	raw, err := c.send(ctx, http.MethodGet, "/admin/quotes", nil)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Data quote.Quotes `json:"data"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode GET /admin/quotes: %w", err)
	}
	out := quote.Quotes{}
	for k, v := range flat {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

// UpdateQuote replaces the text of one section.
func (c *Client) UpdateQuote(ctx context.Context, key, text string) error {
	return c.do(ctx, http.MethodPut, "/admin/quotes/"+url.PathEscape(key), map[string]string{"text": text}, nil)
}

type capsuleWire struct {
	ID          catalog.ID    `json:"id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Type        string        `json:"type"`
	Duration    string        `json:"duration"`
	Price       catalog.Price `json:"price"`
	Date        string        `json:"date"`
	S3Key       string        `json:"s3Key"`
	Thumbnail   string        `json:"thumbnail"`
}

func (w capsuleWire) toCapsule() capsule.Capsule {
	return capsule.Capsule{
		ID:          w.ID.String(),
		Title:       w.Title,
		Description: w.Description,
		Category:    w.Category,
		Type:        w.Type,
		Duration:    w.Duration,
		Price:       float64(w.Price),
		Date:        w.Date,
		S3Key:       w.S3Key,
		Thumbnail:   w.Thumbnail,
	}
}

type capsuleBody struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Duration    string  `json:"duration"`
	Price       float64 `json:"price"`
	Date        string  `json:"date"`
	S3Key       string  `json:"s3Key"`
	Thumbnail   string  `json:"thumbnail"`
}

func toCapsuleBody(cp capsule.Capsule) capsuleBody {
	return capsuleBody{
		Title:       cp.Title,
		Description: cp.Description,
		Category:    cp.Category,
		Type:        cp.Type,
		Duration:    cp.Duration,
		Price:       cp.Price,
		Date:        cp.Date,
		S3Key:       cp.S3Key,
		Thumbnail:   cp.Thumbnail,
	}
}

// ListCapsules returns every capsule. Both {"items":[…]} and a bare array are
// accepted.
func (c *Client) ListCapsules(ctx context.Context) ([]capsule.Capsule, error) {
	raw, err := c.send(ctx, http.MethodGet, "/admin/capsules", nil)
	if err != nil {
		return nil, err
	}
	var items []capsuleWire
	var wrapped struct {
		Items []capsuleWire `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		items = wrapped.Items
	} else if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode GET /admin/capsules: %w", err)
	}
	out := make([]capsule.Capsule, 0, len(items))
	for _, w := range items {
		out = append(out, w.toCapsule())
	}
	return out, nil
}

// CreateCapsule inserts a capsule row and returns its id.
func (c *Client) CreateCapsule(ctx context.Context, cp capsule.Capsule) (string, error) {
	id, err := c.create(ctx, "/admin/capsules", toCapsuleBody(cp))
	return id.String(), err
}

// UpdateCapsule replaces a capsule row.
func (c *Client) UpdateCapsule(ctx context.Context, cp capsule.Capsule) error {
	return c.do(ctx, http.MethodPut, "/admin/capsules/"+url.PathEscape(cp.ID), toCapsuleBody(cp), nil)
}

// DeleteCapsule removes a capsule row.
func (c *Client) DeleteCapsule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/capsules/"+url.PathEscape(id), nil, nil)
}

// UploadTarget is a presigned PUT destination.
type UploadTarget struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl,omitempty"`
}

// Reference returns what a capsule stores for the uploaded object: the public
// URL when the backend gives one, the storage key otherwise.
func (t UploadTarget) Reference() string {
	if t.PublicURL != "" {
		return t.PublicURL
	}
	return t.Key
}

// MediaUploadURL asks for a presigned URL for a capsule audio or video file.
func (c *Client) MediaUploadURL(ctx context.Context, filename, contentType, capsuleType string) (UploadTarget, error) {
	var t UploadTarget
	err := c.do(ctx, http.MethodPost, "/admin/capsules/upload-url", map[string]string{
		"filename":    filename,
		"contentType": contentType,
		"type":        capsuleType,
	}, &t)
	if err == nil && (t.URL == "" || t.Key == "") {
		err = fmt.Errorf("POST /admin/capsules/upload-url: incomplete upload target")
	}
	return t, err
}

// ThumbnailUploadURL asks for a presigned URL for a capsule thumbnail. The
// answer carries a public URL, a storage key or both.
func (c *Client) ThumbnailUploadURL(ctx context.Context, filename, contentType string) (UploadTarget, error) {
	var t UploadTarget
	err := c.do(ctx, http.MethodPost, "/admin/capsules/thumbnail-upload-url", map[string]string{
		"filename":    filename,
		"contentType": contentType,
	}, &t)
	if err == nil && (t.URL == "" || t.Reference() == "") {
		err = fmt.Errorf("POST /admin/capsules/thumbnail-upload-url: incomplete upload target")
	}
	return t, err
}

// ListSubscribers returns the addresses of a newsletter segment.
func (c *Client) ListSubscribers(ctx context.Context, segment string) ([]newsletter.Subscriber, error) {
	var body struct {
		Items []newsletter.Subscriber `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/newsletter/"+url.PathEscape(segment), nil, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

// ExportSubscribers returns the CSV export of a segment as produced by the backend.
func (c *Client) ExportSubscribers(ctx context.Context, segment string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, "/admin/newsletter/"+url.PathEscape(segment)+"/export", nil)
}
