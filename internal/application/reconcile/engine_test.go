package reconcile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"ctbadmin/internal/domain/catalog"
)

// --- Fake writer ---

type fakeWriter struct {
	calls  []string
	next   int
	failOn string // call prefix that fails, e.g. "create session"
}

var errBackend = errors.New("backend unavailable")

func (w *fakeWriter) record(call string) error {
	if w.failOn != "" && strings.HasPrefix(call, w.failOn) {
		return errBackend
	}
	w.calls = append(w.calls, call)
	return nil
}

func (w *fakeWriter) newID(call string) (catalog.ID, error) {
	if err := w.record(call); err != nil {
		return "", err
	}
	w.next++
	return catalog.ID(fmt.Sprintf("n%d", w.next)), nil
}

func (w *fakeWriter) CreateActivity(_ context.Context, _ catalog.Domain, f catalog.ActivityFields) (catalog.ID, error) {
	return w.newID("create activity " + f.Slug)
}
func (w *fakeWriter) UpdateActivity(_ context.Context, id catalog.ID, name string) error {
	return w.record("update activity " + string(id) + " " + name)
}
func (w *fakeWriter) CreateType(_ context.Context, parent catalog.ID, f catalog.TypeFields) (catalog.ID, error) {
	return w.newID("create type " + f.Key + " under " + string(parent))
}
func (w *fakeWriter) CreateLocation(_ context.Context, parent catalog.ID, f catalog.LocationFields) (catalog.ID, error) {
	return w.newID("create location " + f.Name + " under " + string(parent))
}
func (w *fakeWriter) UpdateLocation(_ context.Context, id catalog.ID, f catalog.LocationFields) error {
	return w.record("update location " + string(id) + " " + f.Name)
}
func (w *fakeWriter) DeleteLocation(_ context.Context, id catalog.ID) error {
	return w.record("delete location " + string(id))
}
func (w *fakeWriter) CreateSlot(_ context.Context, parent catalog.ID, f catalog.SlotFields) (catalog.ID, error) {
	return w.newID("create slot " + f.Day + " under " + string(parent))
}
func (w *fakeWriter) UpdateSlot(_ context.Context, id catalog.ID, _ catalog.SlotFields) error {
	return w.record("update slot " + string(id))
}
func (w *fakeWriter) DeleteSlot(_ context.Context, id catalog.ID) error {
	return w.record("delete slot " + string(id))
}
func (w *fakeWriter) CreateSession(_ context.Context, parent catalog.ID, f catalog.SessionFields) (catalog.ID, error) {
	return w.newID("create session " + f.Label + " under " + string(parent))
}
func (w *fakeWriter) UpdateSession(_ context.Context, id catalog.ID, _ catalog.SessionFields) error {
	return w.record("update session " + string(id))
}
func (w *fakeWriter) DeleteSession(_ context.Context, id catalog.ID) error {
	return w.record("delete session " + string(id))
}

// --- Fixtures ---

func loaded() catalog.Activity {
	a := catalog.Activity{
		Ref:  catalog.Ref{ID: "a1"},
		Name: "Karaté",
		Types: []catalog.Type{{
			Ref: catalog.Ref{ID: "t1"},
			Key: catalog.TypePrivate,
			Locations: []catalog.Location{{
				Ref:      catalog.Ref{ID: "l1"},
				Key:      "main",
				Name:     "Studio X",
				Slots:    []catalog.Slot{{Ref: catalog.Ref{ID: "s1"}, Day: "Tuesday", Time: "18:00"}},
				Sessions: []catalog.Session{{Ref: catalog.Ref{ID: "x1"}, PublicID: "single", Label: "Single", Price: 80}},
			}},
		}},
	}
	a.MarkLoaded()
	return a
}

func mustSync(t *testing.T, w *fakeWriter, a *catalog.Activity) Stats {
	t.Helper()
	stats, err := (&Engine{API: w}).Sync(context.Background(), catalog.DomainMartialArts, a)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return stats
}

// TestSync_CreateOrdering verifies parents are created before children and
// empty types are never persisted.
func TestSync_CreateOrdering(t *testing.T) {
	d := catalog.NewDraft()
	d.SetName("Judo Enfants")
	group := catalog.Path{TypeKey: catalog.TypeGroup}
	_ = d.UpdateLocation(group, func(l *catalog.Location) { l.Name = "Dojo" })
	si, _ := d.AddSlot(group)
	_ = d.UpdateSlot(group, si, func(s *catalog.Slot) { s.Day = "Lundi"; s.Time = "17:00" })
	xi, _ := d.AddSession(group)
	_ = d.UpdateSession(group, xi, func(s *catalog.Session) { s.Label = "Trimestre"; s.Price = 240 })

	w := &fakeWriter{}
	stats := mustSync(t, w, &d.Activity)

	want := []string{
		"create activity judo-enfants",
		"create type group under n1",
		"create location Dojo under n2",
		"create slot Lundi under n3",
		"create session Trimestre under n3",
	}
	if !reflect.DeepEqual(w.calls, want) {
		t.Errorf("calls = %v\nwant %v", w.calls, want)
	}
	if stats.Created != 5 || stats.Updated != 0 || stats.Deleted != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if private := d.Activity.TypeByKey(catalog.TypePrivate); !private.IsPending() {
		t.Error("type without named locations must stay pending")
	}
}

// TestSync_CreateOrdering_TwoTypes verifies every type is created before its
// location and every location before its sessions, type by type.
func TestSync_CreateOrdering_TwoTypes(t *testing.T) {
	d := catalog.NewDraft()
	d.SetName("Judo Enfants")
	fill := func(key, location string, labels ...string) {
		p := catalog.Path{TypeKey: key}
		_ = d.UpdateLocation(p, func(l *catalog.Location) { l.Name = location })
		for _, label := range labels {
			i, err := d.AddSession(p)
			if err != nil {
				t.Fatalf("AddSession: %v", err)
			}
			_ = d.UpdateSession(p, i, func(s *catalog.Session) { s.Label = label })
		}
	}
	fill(catalog.TypeGroup, "Dojo", "Essai", "Trimestre")
	fill(catalog.TypePrivate, "Cabinet", "Séance", "Forfait 5")

	w := &fakeWriter{}
	stats := mustSync(t, w, &d.Activity)

	want := []string{
		"create activity judo-enfants",
		"create type group under n1",
		"create location Dojo under n2",
		"create session Essai under n3",
		"create session Trimestre under n3",
		"create type private under n1",
		"create location Cabinet under n6",
		"create session Séance under n7",
		"create session Forfait 5 under n7",
	}
	if !reflect.DeepEqual(w.calls, want) {
		t.Errorf("calls = %v\nwant %v", w.calls, want)
	}
	if stats.Created != 9 {
		t.Errorf("created = %d, want 9", stats.Created)
	}

	again := &fakeWriter{}
	if stats := mustSync(t, again, &d.Activity); stats.Calls() != 0 {
		t.Errorf("second sync issued %v", again.calls)
	}
}

// TestSync_EditFillsEmptyType verifies a type missing on the server is created
// when it gains a named location, with its locations synced from an empty set.
func TestSync_EditFillsEmptyType(t *testing.T) {
	d := catalog.EditDraft(loaded())
	group := catalog.Path{TypeKey: catalog.TypeGroup}
	_ = d.UpdateLocation(group, func(l *catalog.Location) { l.Name = "Gym" })
	i, err := d.AddSession(group)
	if err != nil {
		t.Fatalf("AddSession: %v", err)
	}
	_ = d.UpdateSession(group, i, func(s *catalog.Session) { s.Label = "Pack" })

	w := &fakeWriter{}
	stats := mustSync(t, w, &d.Activity)

	want := []string{
		"create type group under a1",
		"create location Gym under n1",
		"create session Pack under n2",
	}
	if !reflect.DeepEqual(w.calls, want) {
		t.Errorf("calls = %v\nwant %v", w.calls, want)
	}
	if stats.Created != 3 || stats.Updated != 0 || stats.Deleted != 0 {
		t.Errorf("stats = %+v", stats)
	}
	typ := d.Activity.TypeByKey(catalog.TypeGroup)
	if got := typ.KnownLocationIDs(); len(got) != 1 || got[0] != "n2" {
		t.Errorf("known locations = %v, want [n2]", got)
	}

	again := &fakeWriter{}
	if stats := mustSync(t, again, &d.Activity); stats.Calls() != 0 {
		t.Errorf("second sync issued %v", again.calls)
	}
}

// TestSync_Idempotent verifies a second sync issues no call.
func TestSync_Idempotent(t *testing.T) {
	tests := []struct {
		name  string
		build func() catalog.Activity
	}{
		{name: "loaded unchanged", build: loaded},
		{name: "after edits", build: func() catalog.Activity {
			a := loaded()
			loc := &a.Types[0].Locations[0]
			loc.Name = "Studio Y"
			loc.Slots = nil
			loc.Sessions = append(loc.Sessions, catalog.Session{Label: "Five-pack", Price: 350})
			return a
		}},
		{name: "fresh activity", build: func() catalog.Activity {
			return catalog.NewDraft().Activity
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.build()
			a.Name = "Karaté"
			w := &fakeWriter{}
			mustSync(t, w, &a)

			w.calls = nil
			if stats := mustSync(t, w, &a); stats.Calls() != 0 || len(w.calls) != 0 {
				t.Errorf("second sync issued %v", w.calls)
			}
		})
	}
}

// TestSync_RoundTrip covers a typical edit: rename the location, drop the
// slot, add a package, leave the existing package alone.
func TestSync_RoundTrip(t *testing.T) {
	d := catalog.EditDraft(loaded())
	p := catalog.Path{TypeKey: catalog.TypePrivate}
	_ = d.UpdateLocation(p, func(l *catalog.Location) { l.Name = "Studio Y" })
	_ = d.RemoveSlot(p, 0)
	i, _ := d.AddSession(p)
	_ = d.UpdateSession(p, i, func(s *catalog.Session) { s.Label = "Five-pack"; s.Price = 350 })

	w := &fakeWriter{}
	stats := mustSync(t, w, &d.Activity)

	want := []string{
		"update location l1 Studio Y",
		"delete slot s1",
		"create session Five-pack under l1",
	}
	if !reflect.DeepEqual(w.calls, want) {
		t.Errorf("calls = %v\nwant %v", w.calls, want)
	}
	if stats != (Stats{Created: 1, Updated: 1, Deleted: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	loc := d.Activity.TypeByKey(catalog.TypePrivate).Locations[0]
	if got := loc.KnownSessionIDs(); !reflect.DeepEqual(got, []catalog.ID{"x1", "n1"}) {
		t.Errorf("known sessions = %v", got)
	}
	if got := loc.KnownSlotIDs(); len(got) != 0 {
		t.Errorf("known slots = %v, want none", got)
	}
}

// TestSync_DeleteSetIsKnownMinusCurrent verifies deletions follow load order
// and ineligible rows count as removed.
func TestSync_DeleteSetIsKnownMinusCurrent(t *testing.T) {
	a := loaded()
	loc := &a.Types[0].Locations[0]
	loc.Slots = []catalog.Slot{
		{Ref: catalog.Ref{ID: "s1"}, Day: "Mardi", Time: "18:00"},
		{Ref: catalog.Ref{ID: "s2"}, Day: "Jeudi", Time: "18:00"},
		{Ref: catalog.Ref{ID: "s3"}, Day: "Samedi", Time: "10:00"},
	}
	a.MarkLoaded()

	loc = &a.Types[0].Locations[0]
	loc.Slots[2].Day = "  "
	loc.Slots = loc.Slots[1:]

	w := &fakeWriter{}
	mustSync(t, w, &a)

	want := []string{"delete slot s1", "delete slot s3"}
	if !reflect.DeepEqual(w.calls, want) {
		t.Errorf("calls = %v, want %v", w.calls, want)
	}
	if got := loc.KnownSlotIDs(); !reflect.DeepEqual(got, []catalog.ID{"s2"}) {
		t.Errorf("known slots = %v, want [s2]", got)
	}
}

// TestSync_UnnamedLocationDeleted verifies clearing a name deletes the row and
// turns the node back into a pending placeholder.
func TestSync_UnnamedLocationDeleted(t *testing.T) {
	a := loaded()
	a.Types[0].Locations[0].Name = ""

	w := &fakeWriter{}
	mustSync(t, w, &a)

	if !reflect.DeepEqual(w.calls, []string{"delete location l1"}) {
		t.Errorf("calls = %v", w.calls)
	}
	placeholder := a.Types[0].Locations[0]
	if !placeholder.IsPending() || placeholder.DraftKey == "" {
		t.Error("deleted location must become a pending placeholder")
	}
	if len(placeholder.KnownSlotIDs()) != 0 || !placeholder.Slots[0].IsPending() {
		t.Error("placeholder children must be reset")
	}
	if got := a.Types[0].KnownLocationIDs(); len(got) != 0 {
		t.Errorf("known locations = %v, want none", got)
	}
}

// TestSync_FailureAborts verifies the first failure stops the save and keeps
// the failing parent's known set.
func TestSync_FailureAborts(t *testing.T) {
	a := loaded()
	loc := &a.Types[0].Locations[0]
	loc.Slots = append(loc.Slots, catalog.Slot{Day: "Vendredi", Time: "19:00"})
	loc.Sessions = append(loc.Sessions, catalog.Session{PublicID: "five", Label: "Five-pack", Price: 350})
	a.Types[0].Locations = append(a.Types[0].Locations, catalog.Location{Name: "Studio Z"})

	w := &fakeWriter{failOn: "create session"}
	_, err := (&Engine{API: w}).Sync(context.Background(), catalog.DomainMartialArts, &a)
	if !errors.Is(err, errBackend) {
		t.Fatalf("Sync() error = %v, want backend error", err)
	}
	if !strings.Contains(err.Error(), "create session under location l1") {
		t.Errorf("error %q does not name the operation", err)
	}
	if want := []string{"create slot Vendredi under l1"}; !reflect.DeepEqual(w.calls, want) {
		t.Errorf("calls = %v, want %v", w.calls, want)
	}

	loc = &a.Types[0].Locations[0]
	if got := loc.KnownSessionIDs(); !reflect.DeepEqual(got, []catalog.ID{"x1"}) {
		t.Errorf("known sessions = %v, want unchanged [x1]", got)
	}
	if got := a.Types[0].KnownLocationIDs(); !reflect.DeepEqual(got, []catalog.ID{"l1"}) {
		t.Errorf("known locations = %v, want unchanged [l1]", got)
	}
	if loc.Slots[1].IsPending() {
		t.Fatal("created slot must keep its id")
	}

	// Retry creates only what is still missing.
	w.failOn, w.calls = "", nil
	mustSync(t, w, &a)
	want := []string{
		"create session Five-pack under l1",
		"create location Studio Z under t1",
	}
	if !reflect.DeepEqual(w.calls, want) {
		t.Errorf("retry calls = %v\nwant %v", w.calls, want)
	}
}

// TestSync_ActivityRename verifies a name change issues one update.
func TestSync_ActivityRename(t *testing.T) {
	a := loaded()
	a.Name = "  Karaté Shotokan "
	w := &fakeWriter{}
	mustSync(t, w, &a)
	if !reflect.DeepEqual(w.calls, []string{"update activity a1 Karaté Shotokan"}) {
		t.Errorf("calls = %v", w.calls)
	}
}
