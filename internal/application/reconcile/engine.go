// Package reconcile pushes an edited catalog activity to the backend by
// diffing every sibling list against the ids it had when it was loaded.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"ctbadmin/internal/domain/catalog"
)

// Writer is the part of the API client used to persist catalog nodes.
type Writer interface {
	CreateActivity(ctx context.Context, domain catalog.Domain, f catalog.ActivityFields) (catalog.ID, error)
	UpdateActivity(ctx context.Context, id catalog.ID, name string) error
	CreateType(ctx context.Context, activityID catalog.ID, f catalog.TypeFields) (catalog.ID, error)
	CreateLocation(ctx context.Context, typeID catalog.ID, f catalog.LocationFields) (catalog.ID, error)
	UpdateLocation(ctx context.Context, id catalog.ID, f catalog.LocationFields) error
	DeleteLocation(ctx context.Context, id catalog.ID) error
	CreateSlot(ctx context.Context, locationID catalog.ID, f catalog.SlotFields) (catalog.ID, error)
	UpdateSlot(ctx context.Context, id catalog.ID, f catalog.SlotFields) error
	DeleteSlot(ctx context.Context, id catalog.ID) error
	CreateSession(ctx context.Context, locationID catalog.ID, f catalog.SessionFields) (catalog.ID, error)
	UpdateSession(ctx context.Context, id catalog.ID, f catalog.SessionFields) error
	DeleteSession(ctx context.Context, id catalog.ID) error
}

// Stats counts the backend calls issued by a sync.
type Stats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Calls returns the total number of mutating calls.
func (s Stats) Calls() int { return s.Created + s.Updated + s.Deleted }

// Engine reconciles one activity at a time. Calls are issued strictly in
// sequence: activity, types, locations, then each location's slots and
// sessions.
type Engine struct {
	API Writer
}

// Sync makes the backend match a. Node ids assigned by creations are written
// back into a, and every parent's known child set is replaced once its list
// has been fully synchronised.
// PRE: a was loaded with MarkLoaded (or Rebase) or is entirely pending
// POST: On success a re-synced immediately issues no call. On failure the
// first failing call is returned wrapped with its operation; earlier calls
// are not rolled back and the ids they assigned stay on their nodes.
func (e *Engine) Sync(ctx context.Context, domain catalog.Domain, a *catalog.Activity) (Stats, error) {
	s := &syncer{api: e.API, domain: domain}
	err := s.activity(ctx, a)
	slog.Info("catalog_sync", "event", "sync_done", "activity_id", a.ID,
		"created", s.stats.Created, "updated", s.stats.Updated, "deleted", s.stats.Deleted, "error", err)
	return s.stats, err
}

type syncer struct {
	api    Writer
	domain catalog.Domain
	stats  Stats
}

func (s *syncer) activity(ctx context.Context, a *catalog.Activity) error {
	switch {
	case a.IsPending():
		id, err := s.api.CreateActivity(ctx, s.domain, a.Fields())
		if err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		a.CommitActivity(id)
		s.created("activity", id, "")
	case a.NameDirty():
		if err := s.api.UpdateActivity(ctx, a.ID, a.Fields().Name); err != nil {
			return fmt.Errorf("update activity %s: %w", a.ID, err)
		}
		a.CommitActivity("")
		s.updated("activity", a.ID)
	}

	for i := range a.Types {
		if err := s.typ(ctx, a.ID, &a.Types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *syncer) typ(ctx context.Context, activityID catalog.ID, t *catalog.Type) error {
	named := t.NamedLocations()
	if t.IsPending() {
		if len(named) == 0 {
			return nil
		}
		id, err := s.api.CreateType(ctx, activityID, t.Fields())
		if err != nil {
			return fmt.Errorf("create type %s under activity %s: %w", t.Key, activityID, err)
		}
		t.CommitType(id)
		s.created("type", id, activityID)
	}

	ids, err := syncList(ctx, s, list[*catalog.Location]{
		kind:       "location",
		parentKind: "type",
		parent:     t.ID,
		known:      t.KnownLocationIDs(),
		items:      named,
		create: func(ctx context.Context, l *catalog.Location) (catalog.ID, error) {
			return s.api.CreateLocation(ctx, t.ID, l.Fields())
		},
		update: func(ctx context.Context, l *catalog.Location) error {
			return s.api.UpdateLocation(ctx, l.ID, l.Fields())
		},
		remove: s.api.DeleteLocation,
		removed: func(id catalog.ID) {
			for i := range t.Locations {
				if t.Locations[i].ID == id {
					t.Locations[i].Forget()
				}
			}
		},
		children: s.locationChildren,
	})
	if err != nil {
		return err
	}
	t.SetKnownLocationIDs(ids)
	return nil
}

func (s *syncer) locationChildren(ctx context.Context, l *catalog.Location) error {
	slotIDs, err := syncList(ctx, s, list[*catalog.Slot]{
		kind:       "slot",
		parentKind: "location",
		parent:     l.ID,
		known:      l.KnownSlotIDs(),
		items:      l.EligibleSlots(),
		create: func(ctx context.Context, sl *catalog.Slot) (catalog.ID, error) {
			return s.api.CreateSlot(ctx, l.ID, sl.Fields())
		},
		update: func(ctx context.Context, sl *catalog.Slot) error {
			return s.api.UpdateSlot(ctx, sl.ID, sl.Fields())
		},
		remove: s.api.DeleteSlot,
	})
	if err != nil {
		return err
	}
	l.SetKnownSlotIDs(slotIDs)

	sessionIDs, err := syncList(ctx, s, list[*catalog.Session]{
		kind:       "session",
		parentKind: "location",
		parent:     l.ID,
		known:      l.KnownSessionIDs(),
		items:      l.EligibleSessions(),
		create: func(ctx context.Context, ss *catalog.Session) (catalog.ID, error) {
			return s.api.CreateSession(ctx, l.ID, ss.Fields())
		},
		update: func(ctx context.Context, ss *catalog.Session) error {
			return s.api.UpdateSession(ctx, ss.ID, ss.Fields())
		},
		remove: s.api.DeleteSession,
	})
	if err != nil {
		return err
	}
	l.SetKnownSessionIDs(sessionIDs)
	return nil
}

func (s *syncer) created(kind string, id, parent catalog.ID) {
	s.stats.Created++
	slog.Debug("catalog_sync", "event", "created", "kind", kind, "id", id, "parent", parent)
}

func (s *syncer) updated(kind string, id catalog.ID) {
	s.stats.Updated++
	slog.Debug("catalog_sync", "event", "updated", "kind", kind, "id", id)
}

func (s *syncer) deleted(kind string, id catalog.ID) {
	s.stats.Deleted++
	slog.Debug("catalog_sync", "event", "deleted", "kind", kind, "id", id)
}
