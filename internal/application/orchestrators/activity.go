package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ctbadmin/internal/application/reconcile"
	"ctbadmin/internal/domain/catalog"
)

// CatalogReader defines the fetch needed to refresh a catalog after a write.
type CatalogReader interface {
	GetCatalog(ctx context.Context, domain catalog.Domain) (catalog.Catalog, error)
}

// ActivitySyncer pushes one activity tree to the backend.
type ActivitySyncer interface {
	Sync(ctx context.Context, domain catalog.Domain, a *catalog.Activity) (reconcile.Stats, error)
}

// ActivityDeleter defines the call needed by DeleteActivity.
type ActivityDeleter interface {
	DeleteActivity(ctx context.Context, id catalog.ID) error
}

// --- Save Activity ---

// SaveActivityInput carries input for the save-activity orchestrator.
type SaveActivityInput struct {
	Domain catalog.Domain
	Draft  *catalog.Draft
}

// SaveActivityResult carries the outcome of a save.
type SaveActivityResult struct {
	ActivityID catalog.ID
	Stats      reconcile.Stats
	Catalog    catalog.Catalog // refreshed copy; empty if the refresh failed
}

// SaveActivityDeps holds dependencies for SaveActivity.
type SaveActivityDeps struct {
	Syncer  ActivitySyncer
	Catalog CatalogReader
}

// ExecuteSaveActivity validates a draft, reconciles it with the backend and
// refreshes the catalog.
// PRE: Draft was built with NewDraft or EditDraft
// POST: On success every node of the draft carries a server id and the
// returned catalog reflects the save. On a sync failure the stats of the calls
// already issued are returned with the error.
func ExecuteSaveActivity(ctx context.Context, input SaveActivityInput, deps SaveActivityDeps) (SaveActivityResult, error) {
	if input.Draft == nil {
		return SaveActivityResult{}, errors.New("draft is required")
	}
	if _, err := catalog.ParseDomain(string(input.Domain)); err != nil {
		return SaveActivityResult{}, err
	}
	if err := input.Draft.Validate(); err != nil {
		return SaveActivityResult{}, err
	}

	mode := input.Draft.Mode()
	stats, err := deps.Syncer.Sync(ctx, input.Domain, &input.Draft.Activity)
	result := SaveActivityResult{ActivityID: input.Draft.Activity.ID, Stats: stats}
	if err != nil {
		slog.Warn("catalog_event", "event", "activity_save_failed", "domain", input.Domain, "activity_id", result.ActivityID, "calls", stats.Calls(), "error", err)
		return result, fmt.Errorf("save activity: %w", err)
	}

	slog.Info("catalog_event", "event", "activity_saved", "mode", mode, "domain", input.Domain, "activity_id", result.ActivityID,
		"created", stats.Created, "updated", stats.Updated, "deleted", stats.Deleted)
	result.Catalog = refresh(ctx, deps.Catalog, input.Domain)
	return result, nil
}

// --- Push Activity ---

// PushActivityInput carries an activity edited outside the process, for
// example decoded from a file produced by a pull.
type PushActivityInput struct {
	Domain   catalog.Domain
	Activity catalog.Activity
}

// ExecutePushActivity saves an externally edited activity. An activity with no
// id is created. Otherwise it is rebased on the current server copy first, so
// that only real differences are sent and rows removed from the file are
// deleted.
// PRE: Activity.ID, when set, exists in the domain catalog
// POST: Same as ExecuteSaveActivity
func ExecutePushActivity(ctx context.Context, input PushActivityInput, deps SaveActivityDeps) (SaveActivityResult, error) {
	a := input.Activity.Clone()
	if !a.IsPending() {
		server, err := deps.Catalog.GetCatalog(ctx, input.Domain)
		if err != nil {
			return SaveActivityResult{}, fmt.Errorf("load catalog: %w", err)
		}
		current, err := server.Find(a.ID)
		if err != nil {
			return SaveActivityResult{}, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		a.Rebase(current)
	}
	draft := &catalog.Draft{Activity: a}
	return ExecuteSaveActivity(ctx, SaveActivityInput{Domain: input.Domain, Draft: draft}, deps)
}

// --- Delete Activity ---

// DeleteActivityInput carries input for the delete-activity orchestrator.
type DeleteActivityInput struct {
	Domain     catalog.Domain
	ActivityID catalog.ID
}

// DeleteActivityDeps holds dependencies for DeleteActivity.
type DeleteActivityDeps struct {
	API     ActivityDeleter
	Catalog CatalogReader
}

// ExecuteDeleteActivity deletes an activity and refreshes the catalog.
// PRE: ActivityID is non-empty
// POST: The activity is gone from the returned catalog
func ExecuteDeleteActivity(ctx context.Context, input DeleteActivityInput, deps DeleteActivityDeps) (catalog.Catalog, error) {
	if input.ActivityID.IsZero() {
		return catalog.Catalog{}, errors.New("activity ID is required")
	}
	if err := deps.API.DeleteActivity(ctx, input.ActivityID); err != nil {
		return catalog.Catalog{}, fmt.Errorf("delete activity %s: %w", input.ActivityID, err)
	}
	slog.Info("catalog_event", "event", "activity_deleted", "domain", input.Domain, "activity_id", input.ActivityID)
	return refresh(ctx, deps.Catalog, input.Domain), nil
}

// refresh re-fetches a catalog after a successful write. A failure here does
// not undo the write, so it is only logged.
func refresh(ctx context.Context, r CatalogReader, domain catalog.Domain) catalog.Catalog {
	if r == nil {
		return catalog.Catalog{}
	}
	c, err := r.GetCatalog(ctx, domain)
	if err != nil {
		slog.Warn("catalog_event", "event", "refresh_failed", "domain", domain, "error", err)
		return catalog.Catalog{}
	}
	return c
}
