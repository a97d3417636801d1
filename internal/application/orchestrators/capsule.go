package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	client "ctbadmin/internal/adapters/http"
	"ctbadmin/internal/adapters/upload"
	"ctbadmin/internal/domain/capsule"
)

// CapsuleAPI defines the backend calls needed by the capsule orchestrators.
type CapsuleAPI interface {
	ListCapsules(ctx context.Context) ([]capsule.Capsule, error)
	MediaUploadURL(ctx context.Context, filename, contentType, capsuleType string) (client.UploadTarget, error)
	ThumbnailUploadURL(ctx context.Context, filename, contentType string) (client.UploadTarget, error)
	CreateCapsule(ctx context.Context, cp capsule.Capsule) (string, error)
	UpdateCapsule(ctx context.Context, cp capsule.Capsule) error
	DeleteCapsule(ctx context.Context, id string) error
}

// FileUploader sends files to presigned URLs.
type FileUploader interface {
	Put(ctx context.Context, url string, f upload.File) error
	PrepareThumbnail(f upload.File) (upload.File, error)
}

// UploadError reports a failed media or thumbnail transfer. No capsule row is
// written when it is returned.
type UploadError struct {
	Stage string // "media" or "thumbnail"
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// --- Save Capsule ---

// SaveCapsuleInput carries input for the save-capsule orchestrator.
// An empty ID creates a capsule; otherwise the capsule is updated and files
// left nil keep the stored media.
type SaveCapsuleInput struct {
	ID        string
	Form      capsule.Form
	Media     *upload.File
	Thumbnail *upload.File
}

// SaveCapsuleResult carries the saved capsule.
type SaveCapsuleResult struct {
	Capsule capsule.Capsule
	Created bool
}

// SaveCapsuleDeps holds dependencies for SaveCapsule.
type SaveCapsuleDeps struct {
	API      CapsuleAPI
	Uploader FileUploader
}

// ExecuteSaveCapsule validates the form, uploads the files that were given,
// then creates or updates the capsule row.
// PRE: none
// POST: Validation failures return capsule.FieldErrors before any call.
// Transfer failures return *UploadError and no row is written.
func ExecuteSaveCapsule(ctx context.Context, input SaveCapsuleInput, deps SaveCapsuleDeps) (SaveCapsuleResult, error) {
	mode := capsule.ModeCreate
	if input.ID != "" {
		mode = capsule.ModeEdit
	}
	files := capsule.Attachments{Media: input.Media != nil, Thumbnail: input.Thumbnail != nil}
	if err := input.Form.Validate(mode, files); err != nil {
		return SaveCapsuleResult{}, err
	}

	var existing capsule.Capsule
	if mode == capsule.ModeEdit {
		all, err := deps.API.ListCapsules(ctx)
		if err != nil {
			return SaveCapsuleResult{}, fmt.Errorf("load capsules: %w", err)
		}
		found := false
		for _, c := range all {
			if c.ID == input.ID {
				existing, found = c, true
				break
			}
		}
		if !found {
			return SaveCapsuleResult{}, fmt.Errorf("capsule %s: %w", input.ID, capsule.ErrNotFound)
		}
	}

	form := input.Form.Trimmed()
	s3Key, thumbnail := existing.S3Key, existing.Thumbnail

	if input.Media != nil {
		target, err := deps.API.MediaUploadURL(ctx, input.Media.Name, input.Media.ContentType, form.Type)
		if err != nil {
			return SaveCapsuleResult{}, &UploadError{Stage: "media", Err: err}
		}
		if err := deps.Uploader.Put(ctx, target.URL, *input.Media); err != nil {
			return SaveCapsuleResult{}, &UploadError{Stage: "media", Err: err}
		}
		s3Key = target.Key
	}

	if input.Thumbnail != nil {
		thumb, err := deps.Uploader.PrepareThumbnail(*input.Thumbnail)
		if err != nil {
			return SaveCapsuleResult{}, &UploadError{Stage: "thumbnail", Err: err}
		}
		target, err := deps.API.ThumbnailUploadURL(ctx, thumb.Name, thumb.ContentType)
		if err != nil {
			return SaveCapsuleResult{}, &UploadError{Stage: "thumbnail", Err: err}
		}
		if err := deps.Uploader.Put(ctx, target.URL, thumb); err != nil {
			return SaveCapsuleResult{}, &UploadError{Stage: "thumbnail", Err: err}
		}
		thumbnail = target.Reference()
	}

	cp := form.ToCapsule(input.ID, s3Key, thumbnail)
	if mode == capsule.ModeCreate {
		id, err := deps.API.CreateCapsule(ctx, cp)
		if err != nil {
			return SaveCapsuleResult{}, fmt.Errorf("create capsule: %w", err)
		}
		cp.ID = id
		slog.Info("capsule_event", "event", "capsule_created", "capsule_id", id, "type", cp.Type)
		return SaveCapsuleResult{Capsule: cp, Created: true}, nil
	}

	if err := deps.API.UpdateCapsule(ctx, cp); err != nil {
		return SaveCapsuleResult{}, fmt.Errorf("update capsule %s: %w", cp.ID, err)
	}
	slog.Info("capsule_event", "event", "capsule_updated", "capsule_id", cp.ID,
		"media_replaced", input.Media != nil, "thumbnail_replaced", input.Thumbnail != nil)
	return SaveCapsuleResult{Capsule: cp}, nil
}

// --- Delete Capsule ---

// DeleteCapsuleInput carries input for the delete-capsule orchestrator.
type DeleteCapsuleInput struct {
	CapsuleID string
}

// DeleteCapsuleDeps holds dependencies for DeleteCapsule.
type DeleteCapsuleDeps struct {
	API CapsuleAPI
}

// ExecuteDeleteCapsule deletes a capsule row.
// PRE: CapsuleID is non-empty
// POST: The capsule no longer appears in listings
func ExecuteDeleteCapsule(ctx context.Context, input DeleteCapsuleInput, deps DeleteCapsuleDeps) error {
	if input.CapsuleID == "" {
		return errors.New("capsule ID is required")
	}
	if err := deps.API.DeleteCapsule(ctx, input.CapsuleID); err != nil {
		return fmt.Errorf("delete capsule %s: %w", input.CapsuleID, err)
	}
	slog.Info("capsule_event", "event", "capsule_deleted", "capsule_id", input.CapsuleID)
	return nil
}
