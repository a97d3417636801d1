package reconcile

import (
	"context"
	"fmt"

	"ctbadmin/internal/domain/catalog"
)

// list describes one sibling list under a persisted parent.
type list[T catalog.Node] struct {
	kind       string
	parentKind string
	parent     catalog.ID
	known      []catalog.ID // ids the parent had at load time
	items      []T          // eligible children, in display order

	create func(ctx context.Context, item T) (catalog.ID, error)
	update func(ctx context.Context, item T) error
	remove func(ctx context.Context, id catalog.ID) error

	// removed is called after a successful delete.
	removed func(id catalog.ID)
	// children syncs the item's own lists once it is persisted.
	children func(ctx context.Context, item T) error
}

// syncList creates pending items, updates dirty ones, then deletes the known
// ids no longer present. It returns the ids of the current items, which the
// caller stores as the parent's new known set.
// PRE: l.parent is persisted
// POST: On error the known set must not be replaced
func syncList[T catalog.Node](ctx context.Context, s *syncer, l list[T]) ([]catalog.ID, error) {
	current := make(map[catalog.ID]bool, len(l.items))
	ids := make([]catalog.ID, 0, len(l.items))

	for _, item := range l.items {
		switch {
		case item.Identity().IsZero():
			id, err := l.create(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("create %s under %s %s: %w", l.kind, l.parentKind, l.parent, err)
			}
			item.Commit(id)
			s.created(l.kind, id, l.parent)
		case item.Dirty():
			if err := l.update(ctx, item); err != nil {
				return nil, fmt.Errorf("update %s %s: %w", l.kind, item.Identity(), err)
			}
			item.Commit("")
			s.updated(l.kind, item.Identity())
		}

		if l.children != nil {
			if err := l.children(ctx, item); err != nil {
				return nil, err
			}
		}
		id := item.Identity()
		current[id] = true
		ids = append(ids, id)
	}

	for _, id := range l.known {
		if current[id] {
			continue
		}
		if err := l.remove(ctx, id); err != nil {
			return nil, fmt.Errorf("delete %s %s: %w", l.kind, id, err)
		}
		s.deleted(l.kind, id)
		if l.removed != nil {
			l.removed(id)
		}
	}
	return ids, nil
}
