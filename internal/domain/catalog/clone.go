package catalog

// Clone returns a deep copy of the activity, including known-at-load state.
// The copy shares no slices with the receiver.
func (a Activity) Clone() Activity {
	out := a
	out.Types = make([]Type, len(a.Types))
	for i, t := range a.Types {
		out.Types[i] = t.clone()
	}
	return out
}

func (t Type) clone() Type {
	out := t
	out.knownLocations = cloneIDs(t.knownLocations)
	out.Locations = make([]Location, len(t.Locations))
	for i, l := range t.Locations {
		out.Locations[i] = l.clone()
	}
	return out
}

func (l Location) clone() Location {
	out := l
	out.knownSlots = cloneIDs(l.knownSlots)
	out.knownSessions = cloneIDs(l.knownSessions)
	out.Slots = append([]Slot(nil), l.Slots...)
	out.Sessions = append([]Session(nil), l.Sessions...)
	return out
}
