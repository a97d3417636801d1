package catalog

// Node is one element of a sibling list that can be synchronised with the
// backend: it has an identity, knows whether it changed since it was loaded,
// and can record that the backend now matches it.
type Node interface {
	Identity() ID
	Dirty() bool
	Commit(id ID)
}

var (
	_ Node = (*Location)(nil)
	_ Node = (*Slot)(nil)
	_ Node = (*Session)(nil)
)

// MarkLoaded stamps every activity of a freshly fetched catalog with its
// known-at-load state. It must be called on trees that mirror the backend.
// PRE: c was decoded from a catalog fetch
// POST: every node has a baseline and every parent knows its child ids
func (c *Catalog) MarkLoaded() {
	for i := range c.Activities {
		c.Activities[i].MarkLoaded()
	}
}

// MarkLoaded stamps the activity subtree with its known-at-load state.
func (a *Activity) MarkLoaded() {
	if !a.IsPending() {
		a.base = a.Fields()
		a.hasBase = true
	}
	for i := range a.Types {
		t := &a.Types[i]
		t.knownLocations = persistedIDs(t.Locations, func(l *Location) ID { return l.ID })
		for j := range t.Locations {
			t.Locations[j].markLoaded()
		}
	}
}

func (l *Location) markLoaded() {
	if !l.IsPending() {
		l.base = l.Fields()
		l.hasBase = true
	}
	l.knownSlots = persistedIDs(l.Slots, func(s *Slot) ID { return s.ID })
	l.knownSessions = persistedIDs(l.Sessions, func(s *Session) ID { return s.ID })
	for i := range l.Slots {
		if s := &l.Slots[i]; !s.IsPending() {
			s.base = s.Fields()
			s.hasBase = true
		}
	}
	for i := range l.Sessions {
		s := &l.Sessions[i]
		if s.orderMissing {
			s.Order, s.orderMissing = i, false
		}
		if !s.IsPending() {
			s.base = s.Fields()
			s.hasBase = true
		}
	}
}

// Rebase copies the known-at-load state of server onto a. A node inherits
// its server baseline only when its id exists in server under the same parent
// id; any other persisted node of a turns pending and will be created. A node
// moved to another parent is therefore created there and deleted from its old
// parent, never silently dropped.
// Use it when a was edited outside this process (for example decoded from a
// file) and server is the current backend copy of the same activity.
// PRE: server was marked loaded
// POST: persisted nodes of a sit under the same parent as in server
func (a *Activity) Rebase(server Activity) {
	if a.ID == server.ID && server.hasBase {
		a.base = server.base
		a.hasBase = true
	}

	type placedLocation struct {
		parent ID
		node   *Location
	}
	type placedSlot struct {
		parent ID
		node   *Slot
	}
	type placedSession struct {
		parent ID
		node   *Session
	}

	types := map[ID]*Type{}
	locations := map[ID]placedLocation{}
	slots := map[ID]placedSlot{}
	sessions := map[ID]placedSession{}
	for i := range server.Types {
		t := &server.Types[i]
		if t.IsPending() {
			continue
		}
		types[t.ID] = t
		for j := range t.Locations {
			l := &t.Locations[j]
			if l.IsPending() {
				continue
			}
			locations[l.ID] = placedLocation{parent: t.ID, node: l}
			for k := range l.Slots {
				slots[l.Slots[k].ID] = placedSlot{parent: l.ID, node: &l.Slots[k]}
			}
			for k := range l.Sessions {
				sessions[l.Sessions[k].ID] = placedSession{parent: l.ID, node: &l.Sessions[k]}
			}
		}
	}

	for i := range a.Types {
		t := &a.Types[i]
		if !t.IsPending() {
			if st, ok := types[t.ID]; ok {
				t.knownLocations = cloneIDs(st.knownLocations)
			} else {
				t.Ref = NewPendingRef()
				t.knownLocations = nil
			}
		}
		for j := range t.Locations {
			l := &t.Locations[j]
			if !l.IsPending() {
				sl, ok := locations[l.ID]
				if !ok || t.IsPending() || sl.parent != t.ID {
					l.Forget()
					continue
				}
				l.base, l.hasBase = sl.node.base, sl.node.hasBase
				l.knownSlots = cloneIDs(sl.node.knownSlots)
				l.knownSessions = cloneIDs(sl.node.knownSessions)
			}
			for k := range l.Slots {
				s := &l.Slots[k]
				if s.IsPending() {
					continue
				}
				if ss, ok := slots[s.ID]; ok && !l.IsPending() && ss.parent == l.ID {
					s.base, s.hasBase = ss.node.base, ss.node.hasBase
				} else {
					s.Ref, s.hasBase = NewPendingRef(), false
				}
			}
			for k := range l.Sessions {
				s := &l.Sessions[k]
				if s.IsPending() {
					continue
				}
				if ss, ok := sessions[s.ID]; ok && !l.IsPending() && ss.parent == l.ID {
					s.base, s.hasBase = ss.node.base, ss.node.hasBase
				} else {
					s.Ref, s.hasBase = NewPendingRef(), false
				}
			}
		}
	}
}

// NameDirty reports whether the activity name differs from the loaded one.
func (a *Activity) NameDirty() bool {
	return !a.hasBase || a.Fields().Name != a.base.Name
}

// CommitActivity records a successful create or update of the activity.
func (a *Activity) CommitActivity(id ID) {
	if a.ID == "" {
		a.ID = id
	}
	a.base = a.Fields()
	a.hasBase = true
}

// KnownLocationIDs returns the location ids the type had when loaded.
func (t *Type) KnownLocationIDs() []ID { return cloneIDs(t.knownLocations) }

// SetKnownLocationIDs replaces the known location ids after a successful sync.
func (t *Type) SetKnownLocationIDs(ids []ID) { t.knownLocations = cloneIDs(ids) }

// CommitType records a successful creation of the type. A freshly created
// type has no known locations.
func (t *Type) CommitType(id ID) {
	t.ID = id
	t.Label = TypeLabel(t.Key)
	t.knownLocations = nil
}

// Dirty reports whether the location differs from its loaded state.
func (l *Location) Dirty() bool { return !l.hasBase || l.Fields() != l.base }

// Commit records that the backend now matches the location.
func (l *Location) Commit(id ID) {
	if l.ID == "" {
		l.ID = id
		l.knownSlots = nil
		l.knownSessions = nil
	}
	l.base = l.Fields()
	l.hasBase = true
}

// KnownSlotIDs returns the slot ids the location had when loaded.
func (l *Location) KnownSlotIDs() []ID { return cloneIDs(l.knownSlots) }

// SetKnownSlotIDs replaces the known slot ids after a successful sync.
func (l *Location) SetKnownSlotIDs(ids []ID) { l.knownSlots = cloneIDs(ids) }

// KnownSessionIDs returns the session ids the location had when loaded.
func (l *Location) KnownSessionIDs() []ID { return cloneIDs(l.knownSessions) }

// SetKnownSessionIDs replaces the known session ids after a successful sync.
func (l *Location) SetKnownSessionIDs(ids []ID) { l.knownSessions = cloneIDs(ids) }

// Forget turns the location and its children back into pending nodes. It is
// used when the backend row was deleted while the node stays in the tree as a
// placeholder; its own child bookkeeping is discarded with it.
func (l *Location) Forget() {
	l.Ref = NewPendingRef()
	l.hasBase = false
	l.knownSlots = nil
	l.knownSessions = nil
	for i := range l.Slots {
		l.Slots[i].Ref = NewPendingRef()
		l.Slots[i].hasBase = false
	}
	for i := range l.Sessions {
		l.Sessions[i].Ref = NewPendingRef()
		l.Sessions[i].hasBase = false
	}
}

// Dirty reports whether the slot differs from its loaded state.
func (s *Slot) Dirty() bool { return !s.hasBase || s.Fields() != s.base }

// Commit records that the backend now matches the slot.
func (s *Slot) Commit(id ID) {
	if s.ID == "" {
		s.ID = id
	}
	s.base = s.Fields()
	s.hasBase = true
}

// Dirty reports whether the session differs from its loaded state.
func (s *Session) Dirty() bool { return !s.hasBase || s.Fields() != s.base }

// Commit records that the backend now matches the session.
func (s *Session) Commit(id ID) {
	if s.ID == "" {
		s.ID = id
	}
	s.base = s.Fields()
	s.hasBase = true
}

func persistedIDs[T any](items []T, id func(*T) ID) []ID {
	var out []ID
	for i := range items {
		if v := id(&items[i]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cloneIDs(ids []ID) []ID {
	if ids == nil {
		return nil
	}
	out := make([]ID, len(ids))
	copy(out, ids)
	return out
}
