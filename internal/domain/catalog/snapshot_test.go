package catalog_test

import (
	"testing"

	"ctbadmin/internal/domain/catalog"
)

func loadedActivity() catalog.Activity {
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

// TestMarkLoaded_RecordsKnownIDs verifies parents know their children after load.
func TestMarkLoaded_RecordsKnownIDs(t *testing.T) {
	a := loadedActivity()
	typ := &a.Types[0]
	loc := &typ.Locations[0]

	if got := typ.KnownLocationIDs(); len(got) != 1 || got[0] != "l1" {
		t.Errorf("known locations = %v, want [l1]", got)
	}
	if got := loc.KnownSlotIDs(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("known slots = %v, want [s1]", got)
	}
	if got := loc.KnownSessionIDs(); len(got) != 1 || got[0] != "x1" {
		t.Errorf("known sessions = %v, want [x1]", got)
	}
}

// TestDirty tests change detection against the loaded baseline.
func TestDirty(t *testing.T) {
	a := loadedActivity()
	loc := &a.Types[0].Locations[0]

	if a.NameDirty() || loc.Dirty() || loc.Slots[0].Dirty() || loc.Sessions[0].Dirty() {
		t.Fatal("freshly loaded nodes must be clean")
	}

	loc.Name = "  Studio X  "
	if loc.Dirty() {
		t.Error("whitespace-only change must not make the location dirty")
	}

	loc.Name = "Studio Y"
	if !loc.Dirty() {
		t.Error("renamed location must be dirty")
	}
	loc.Commit("")
	if loc.Dirty() {
		t.Error("committed location must be clean")
	}
	if loc.ID != "l1" {
		t.Errorf("commit must keep the existing id, got %s", loc.ID)
	}

	loc.Sessions[0].Price = 90
	if !loc.Sessions[0].Dirty() {
		t.Error("repriced session must be dirty")
	}

	pending := catalog.Slot{Day: "Lundi", Time: "09:00"}
	if !pending.Dirty() {
		t.Error("pending slot must be dirty")
	}
}

// TestRebase verifies baselines are taken from the server copy by id.
func TestRebase(t *testing.T) {
	server := loadedActivity()

	edited := catalog.Activity{
		Ref:  catalog.Ref{ID: "a1"},
		Name: "Karaté",
		Types: []catalog.Type{{
			Ref: catalog.Ref{ID: "t1"},
			Key: catalog.TypePrivate,
			Locations: []catalog.Location{{
				Ref:      catalog.Ref{ID: "l1"},
				Key:      "main",
				Name:     "Studio X",
				Sessions: []catalog.Session{{Ref: catalog.Ref{ID: "x1"}, PublicID: "single", Label: "Single", Price: 80}},
			}},
		}},
	}
	edited.Rebase(server)

	loc := &edited.Types[0].Locations[0]
	if edited.NameDirty() {
		t.Error("unchanged name must be clean after rebase")
	}
	if loc.Dirty() {
		t.Error("unchanged location must be clean after rebase")
	}
	if loc.Sessions[0].Dirty() {
		t.Error("unchanged session must be clean after rebase")
	}
	if got := loc.KnownSlotIDs(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("known slots = %v, want [s1] from server", got)
	}
}

// TestRebase_MovedNodesTurnPending verifies nodes placed under another parent
// than on the server lose their identity so they get created there.
func TestRebase_MovedNodesTurnPending(t *testing.T) {
	server := catalog.Activity{
		Ref:  catalog.Ref{ID: "a1"},
		Name: "Judo",
		Types: []catalog.Type{
			{Ref: catalog.Ref{ID: "g1"}, Key: catalog.TypeGroup, Locations: []catalog.Location{{
				Ref:      catalog.Ref{ID: "l2"},
				Name:     "Dojo",
				Sessions: []catalog.Session{{Ref: catalog.Ref{ID: "x2"}, PublicID: "pack", Label: "Pack", Price: 40}},
			}}},
			{Ref: catalog.Ref{ID: "p1"}, Key: catalog.TypePrivate, Locations: []catalog.Location{{
				Ref:  catalog.Ref{ID: "l9"},
				Name: "Cabinet",
			}}},
		},
	}
	server.MarkLoaded()

	tests := []struct {
		name   string
		edited catalog.Activity
		check  func(t *testing.T, a *catalog.Activity)
	}{
		{
			name: "location moved to another type",
			edited: catalog.Activity{
				Ref:  catalog.Ref{ID: "a1"},
				Name: "Judo",
				Types: []catalog.Type{
					{Ref: catalog.Ref{ID: "g1"}, Key: catalog.TypeGroup, Locations: []catalog.Location{
						{Ref: catalog.Ref{ID: "l2"}, Name: "Dojo", Sessions: []catalog.Session{{Ref: catalog.Ref{ID: "x2"}, PublicID: "pack", Label: "Pack", Price: 40}}},
						{Ref: catalog.Ref{ID: "l9"}, Name: "Cabinet"},
					}},
					{Ref: catalog.Ref{ID: "p1"}, Key: catalog.TypePrivate},
				},
			},
			check: func(t *testing.T, a *catalog.Activity) {
				moved := &a.Types[0].Locations[1]
				if !moved.IsPending() || !moved.Dirty() {
					t.Error("moved location must be pending and dirty")
				}
				if a.Types[0].Locations[0].IsPending() || a.Types[0].Locations[0].Dirty() {
					t.Error("location kept under its type must stay clean")
				}
				if got := a.Types[1].KnownLocationIDs(); len(got) != 1 || got[0] != "l9" {
					t.Errorf("old parent known = %v, want [l9]", got)
				}
			},
		},
		{
			name: "session moved to another location",
			edited: catalog.Activity{
				Ref:  catalog.Ref{ID: "a1"},
				Name: "Judo",
				Types: []catalog.Type{
					{Ref: catalog.Ref{ID: "g1"}, Key: catalog.TypeGroup, Locations: []catalog.Location{{Ref: catalog.Ref{ID: "l2"}, Name: "Dojo"}}},
					{Ref: catalog.Ref{ID: "p1"}, Key: catalog.TypePrivate, Locations: []catalog.Location{{
						Ref:      catalog.Ref{ID: "l9"},
						Name:     "Cabinet",
						Sessions: []catalog.Session{{Ref: catalog.Ref{ID: "x2"}, PublicID: "pack", Label: "Pack", Price: 40}},
					}}},
				},
			},
			check: func(t *testing.T, a *catalog.Activity) {
				s := &a.Types[1].Locations[0].Sessions[0]
				if !s.IsPending() || !s.Dirty() {
					t.Error("moved session must be pending and dirty")
				}
				if s.PublicID != "pack" {
					t.Errorf("public id = %q, want it kept", s.PublicID)
				}
				if got := a.Types[0].Locations[0].KnownSessionIDs(); len(got) != 1 || got[0] != "x2" {
					t.Errorf("old parent known = %v, want [x2]", got)
				}
			},
		},
		{
			name: "unknown ids are created",
			edited: catalog.Activity{
				Ref:  catalog.Ref{ID: "a1"},
				Name: "Judo",
				Types: []catalog.Type{
					{Ref: catalog.Ref{ID: "zz"}, Key: catalog.TypeGroup, Locations: []catalog.Location{{Ref: catalog.Ref{ID: "l2"}, Name: "Dojo"}}},
				},
			},
			check: func(t *testing.T, a *catalog.Activity) {
				if !a.Types[0].IsPending() || !a.Types[0].Locations[0].IsPending() {
					t.Error("nodes under an unknown type must be pending")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.edited
			a.Rebase(server)
			tt.check(t, &a)
		})
	}
}

// TestForget verifies a forgotten location drops its identity and bookkeeping.
func TestForget(t *testing.T) {
	a := loadedActivity()
	loc := &a.Types[0].Locations[0]
	loc.Forget()

	if !loc.IsPending() || loc.DraftKey == "" {
		t.Error("forgotten location must be pending with a draft key")
	}
	if len(loc.KnownSlotIDs()) != 0 || len(loc.KnownSessionIDs()) != 0 {
		t.Error("forgotten location must not know any children")
	}
	if !loc.Slots[0].IsPending() || !loc.Sessions[0].IsPending() {
		t.Error("children of a forgotten location must be pending")
	}
}

// TestClone_NoAliasing verifies edits on a clone never reach the source.
func TestClone_NoAliasing(t *testing.T) {
	a := loadedActivity()
	c := a.Clone()
	c.Types[0].Locations[0].Name = "Changed"
	c.Types[0].Locations[0].Slots[0].Day = "Friday"
	c.Types[0].Locations[0].SetKnownSlotIDs(nil)

	if a.Types[0].Locations[0].Name != "Studio X" {
		t.Error("clone aliased location name")
	}
	if a.Types[0].Locations[0].Slots[0].Day != "Tuesday" {
		t.Error("clone aliased slots")
	}
	if len(a.Types[0].Locations[0].KnownSlotIDs()) != 1 {
		t.Error("clone aliased known ids")
	}
}
