package routing

// HasConflictingAssignments reports whether a source occupying the given
// slots is feeding both output families at once. Occupying any mix of slots
// within one family is fine (preview plus live on the same side is the
// normal promoted state); holding a Studio slot and a TV slot simultaneously
// is a routing conflict, regardless of the preview/live mix. The result
// depends only on the set, not on assignment order.
func HasConflictingAssignments(slots []Slot) bool {
	var studio, tv bool
	for _, s := range slots {
		switch s.Family() {
		case SideStudio:
			studio = true
		case SideTV:
			tv = true
		}
	}
	return studio && tv
}
