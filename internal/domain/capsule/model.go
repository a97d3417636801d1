package capsule

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Capsule media types.
const (
	TypeAudio = "audio"
	TypeVideo = "video"
)

// Form modes.
const (
	ModeCreate = "create"
	ModeEdit   = "edit"
)

// DateLayout is the calendar date format used by the backend.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrInvalidType = errors.New("capsule type must be 'audio' or 'video'")
	ErrNotFound    = errors.New("capsule not found")
)

var validate = validator.New()

// Capsule is a paid audio or video capsule stored on S3.
type Capsule struct {
	ID          string  `json:"id"`
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

// TypeLabel returns the display label of the capsule type.
func (c Capsule) TypeLabel() string {
	if c.Type == TypeAudio {
		return "Audio"
	}
	return "Vidéo"
}

// Form carries the editable capsule fields as typed by the admin.
type Form struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=audio video"`
	Duration    string `json:"duration" validate:"required"`
	Price       string `json:"price"`
	Date        string `json:"date" validate:"required"`
}

// EmptyForm returns the create-mode defaults: audio, dated today.
func EmptyForm(now time.Time) Form {
	return Form{Type: TypeAudio, Date: now.Format(DateLayout)}
}

// FormFrom fills a form from an existing capsule for edit mode.
func FormFrom(c Capsule, now time.Time) Form {
	f := Form{
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Type:        c.Type,
		Duration:    c.Duration,
		Price:       strconv.FormatFloat(c.Price, 'f', -1, 64),
		Date:        now.Format(DateLayout),
	}
	if f.Type == "" {
		f.Type = TypeAudio
	}
	if len(c.Date) >= len(DateLayout) {
		f.Date = c.Date[:len(DateLayout)]
	}
	return f
}

// Attachments tells validation which files accompany the form.
type Attachments struct {
	Media     bool
	Thumbnail bool
}

// FieldErrors maps a form field to a user-facing message.
type FieldErrors map[string]string

// Error lists the failing fields in a stable order.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid capsule: " + strings.Join(parts, "; ")
}

var fieldMessages = map[string]string{
	"title":       "Titre requis.",
	"description": "Description requise.",
	"category":    "Catégorie requise.",
	"type":        "Type requis.",
	"duration":    "Durée requise.",
	"date":        "Date requise.",
}

// Validate checks the form before any upload or network call. Files are
// required on creation and optional on edit, where absence keeps the
// existing media.
// PRE: mode is ModeCreate or ModeEdit
// POST: Returns nil or a FieldErrors keyed by json field name
func (f Form) Validate(mode string, files Attachments) error {
	errs := FieldErrors{}

	trimmed := f.Trimmed()
	if err := validate.Struct(trimmed); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			key := strings.ToLower(fe.Field())
			errs[key] = fieldMessages[key]
		}
	}
	if trimmed.Date != "" {
		if _, err := time.Parse(DateLayout, trimmed.Date); err != nil {
			errs["date"] = "Date invalide."
		}
	}

	if trimmed.Price == "" {
		errs["price"] = "Prix invalide."
	} else if p, err := strconv.ParseFloat(trimmed.Price, 64); err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		errs["price"] = "Prix invalide."
	} else if p <= 0 {
		errs["price"] = "Le prix doit être > 0."
	}

	if mode == ModeCreate {
		if !files.Media {
			errs["mediaFile"] = "Fichier audio/vidéo requis."
		}
		if !files.Thumbnail {
			errs["thumbFile"] = "Image de présentation requise."
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Trimmed returns a copy with surrounding whitespace removed from text fields.
func (f Form) Trimmed() Form {
	return Form{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
		Type:        strings.TrimSpace(f.Type),
		Duration:    strings.TrimSpace(f.Duration),
		Price:       strings.TrimSpace(f.Price),
		Date:        strings.TrimSpace(f.Date),
	}
}

// ToCapsule builds the record sent to the backend from a validated form.
// PRE: f.Validate returned nil
// POST: Returns a Capsule with parsed price and the given storage references
func (f Form) ToCapsule(id, s3Key, thumbnail string) Capsule {
	t := f.Trimmed()
	price, _ := strconv.ParseFloat(t.Price, 64)
	return Capsule{
		ID:          id,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Type:        t.Type,
		Duration:    t.Duration,
		Price:       price,
		Date:        t.Date,
		S3Key:       s3Key,
		Thumbnail:   thumbnail,
	}
}

// MatchesFilter reports whether the capsule passes a type filter ("all",
// "audio", "video") and a free-text query over title and category.
func (c Capsule) MatchesFilter(typeFilter, query string) bool {
	if typeFilter != "" && typeFilter != "all" && c.Type != typeFilter {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Category), q)
}
