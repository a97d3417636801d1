package catalog

import "strings"

// Mode is the save mode of a draft.
type Mode string

// Draft modes.
const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Default values for a session added from the editor.
const (
	DefaultSessionLabel   = "Séance de 1h"
	DefaultSessionPrice   = 80
	DefaultSessionMinutes = 60
	DefaultSlotDay        = "Lundi"
	DefaultSlotTime       = "09:00"
)

// Path addresses a location inside a draft.
type Path struct {
	TypeKey  string
	Location int
}

// Draft is an edit session over one activity. It owns a private deep copy of
// the tree; edits go through path-based helpers so the source tree is never
// aliased.
type Draft struct {
	Activity       Activity
	ActiveType     string
	ActiveLocation int
}

// NewDraft returns a draft for a brand-new activity: both types present, each
// with one empty placeholder location.
// PRE: none
// POST: Draft in ModeCreate with types group and private
func NewDraft() *Draft {
	a := Activity{Ref: NewPendingRef()}
	for _, key := range ValidTypeKeys {
		a.Types = append(a.Types, pendingType(key))
	}
	return &Draft{Activity: a, ActiveType: TypeGroup}
}

// EditDraft returns a draft over a copy of an existing activity. Missing types
// are added as pending, and every type gets at least one location so the
// editor always has something to fill.
// PRE: a is a persisted activity, ideally marked loaded
// POST: Draft in ModeEdit; a is not modified
func EditDraft(a Activity) *Draft {
	c := a.Clone()
	for _, key := range ValidTypeKeys {
		if c.TypeByKey(key) == nil {
			c.Types = append(c.Types, pendingType(key))
		}
	}
	for i := range c.Types {
		if len(c.Types[i].Locations) == 0 {
			c.Types[i].Locations = []Location{placeholderLocation(c.Types[i].Key)}
		}
	}
	active := TypeGroup
	if len(a.Types) > 0 {
		active = a.Types[0].Key
	}
	return &Draft{Activity: c, ActiveType: active}
}

func pendingType(key string) Type {
	return Type{
		Ref:       NewPendingRef(),
		Key:       key,
		Label:     TypeLabel(key),
		Locations: []Location{placeholderLocation(key)},
	}
}

func placeholderLocation(typeKey string) Location {
	return Location{
		Ref:      NewPendingRef(),
		Key:      DefaultLocationKey,
		Flexible: typeKey == TypePrivate,
	}
}

// Mode returns ModeCreate until the activity has a server id.
func (d *Draft) Mode() Mode {
	if d.Activity.IsPending() {
		return ModeCreate
	}
	return ModeEdit
}

// Validate gates submission: a name and at least one named location.
// PRE: none
// POST: Returns nil if the draft may be saved
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Activity.Name) == "" {
		return ErrEmptyName
	}
	named := false
	for i := range d.Activity.Types {
		t := &d.Activity.Types[i]
		if !IsValidTypeKey(t.Key) {
			return ErrInvalidTypeKey
		}
		if t.HasContent() {
			named = true
		}
	}
	if !named {
		return ErrNoNamedLocation
	}
	return nil
}

// SetName sets the activity name.
func (d *Draft) SetName(name string) {
	d.Activity.Name = name
}

// ActivePath returns the path currently selected in the editor.
func (d *Draft) ActivePath() Path {
	return Path{TypeKey: d.ActiveType, Location: d.ActiveLocation}
}

// Select changes the active type and location.
// PRE: p addresses an existing location
// POST: ActiveType and ActiveLocation updated
func (d *Draft) Select(p Path) error {
	if _, err := d.location(p); err != nil {
		return err
	}
	d.ActiveType, d.ActiveLocation = p.TypeKey, p.Location
	return nil
}

// Location returns a copy of the location at p.
func (d *Draft) Location(p Path) (Location, error) {
	l, err := d.location(p)
	if err != nil {
		return Location{}, err
	}
	return l.clone(), nil
}

// AddLocation appends a placeholder location to a type and returns its path.
func (d *Draft) AddLocation(typeKey string) (Path, error) {
	t := d.Activity.TypeByKey(typeKey)
	if t == nil {
		return Path{}, ErrUnknownType
	}
	t.Locations = append(t.Locations, placeholderLocation(typeKey))
	return Path{TypeKey: typeKey, Location: len(t.Locations) - 1}, nil
}

// RemoveLocation drops the location at p. A persisted location removed here is
// deleted on the next save.
func (d *Draft) RemoveLocation(p Path) error {
	t := d.Activity.TypeByKey(p.TypeKey)
	if t == nil {
		return ErrUnknownType
	}
	if p.Location < 0 || p.Location >= len(t.Locations) {
		return ErrLocationOutOfRange
	}
	t.Locations = append(t.Locations[:p.Location], t.Locations[p.Location+1:]...)
	if d.ActiveType == p.TypeKey && d.ActiveLocation >= len(t.Locations) {
		d.ActiveLocation = 0
	}
	return nil
}

// UpdateLocation applies fn to the location at p.
func (d *Draft) UpdateLocation(p Path, fn func(*Location)) error {
	l, err := d.location(p)
	if err != nil {
		return err
	}
	fn(l)
	return nil
}

// AddSlot appends a slot with the editor defaults and returns its index.
func (d *Draft) AddSlot(p Path) (int, error) {
	l, err := d.location(p)
	if err != nil {
		return 0, err
	}
	l.Slots = append(l.Slots, Slot{Ref: NewPendingRef(), Day: DefaultSlotDay, Time: DefaultSlotTime})
	return len(l.Slots) - 1, nil
}

// UpdateSlot applies fn to slot i of the location at p.
func (d *Draft) UpdateSlot(p Path, i int, fn func(*Slot)) error {
	l, err := d.location(p)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(l.Slots) {
		return ErrIndexOutOfRange
	}
	fn(&l.Slots[i])
	return nil
}

// RemoveSlot drops slot i of the location at p.
func (d *Draft) RemoveSlot(p Path, i int) error {
	l, err := d.location(p)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(l.Slots) {
		return ErrIndexOutOfRange
	}
	l.Slots = append(l.Slots[:i], l.Slots[i+1:]...)
	return nil
}

// AddSession appends a session with the editor defaults and returns its index.
// The public id is assigned here, once, and survives later edits.
func (d *Draft) AddSession(p Path) (int, error) {
	l, err := d.location(p)
	if err != nil {
		return 0, err
	}
	l.Sessions = append(l.Sessions, Session{
		Ref:             NewPendingRef(),
		PublicID:        "new-" + shortKey(),
		Label:           DefaultSessionLabel,
		Price:           DefaultSessionPrice,
		DurationMinutes: DefaultSessionMinutes,
		Order:           len(l.Sessions),
	})
	return len(l.Sessions) - 1, nil
}

// UpdateSession applies fn to session i of the location at p.
// The session's public id is restored if fn clears it.
func (d *Draft) UpdateSession(p Path, i int, fn func(*Session)) error {
	l, err := d.location(p)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(l.Sessions) {
		return ErrIndexOutOfRange
	}
	publicID := l.Sessions[i].PublicID
	fn(&l.Sessions[i])
	if strings.TrimSpace(l.Sessions[i].PublicID) == "" {
		l.Sessions[i].PublicID = publicID
	}
	return nil
}

// RemoveSession drops session i of the location at p.
func (d *Draft) RemoveSession(p Path, i int) error {
	l, err := d.location(p)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(l.Sessions) {
		return ErrIndexOutOfRange
	}
	l.Sessions = append(l.Sessions[:i], l.Sessions[i+1:]...)
	return nil
}

func (d *Draft) location(p Path) (*Location, error) {
	t := d.Activity.TypeByKey(p.TypeKey)
	if t == nil {
		return nil, ErrUnknownType
	}
	if p.Location < 0 || p.Location >= len(t.Locations) {
		return nil, ErrLocationOutOfRange
	}
	return &t.Locations[p.Location], nil
}
