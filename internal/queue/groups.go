package queue

import "sort"

// Group is a display bucket of items sharing a library and collection.
// Unresolved groups are keyed by the matcher's top suggestion so siblings
// of one manual decision stay together.
type Group struct {
	LibraryName          string
	CollectionName       string
	NeedsManualSelection bool
	Items                []Item
}

// Groups partitions the session's items for display. Groups that need a
// manual selection come first, then resolved groups, each set ordered by
// library then collection name.
func (m *Manager) Groups() []Group {
	type groupKey struct {
		library    string
		collection string
		manual     bool
	}
	byKey := make(map[groupKey]*Group)
	var keys []groupKey

	add := func(item Item, library string, manual bool) {
		key := groupKey{library, item.Meta.CollectionName, manual}
		group, ok := byKey[key]
		if !ok {
			group = &Group{
				LibraryName:          library,
				CollectionName:       item.Meta.CollectionName,
				NeedsManualSelection: manual,
			}
			byKey[key] = group
			keys = append(keys, key)
		}
		group.Items = append(group.Items, item)
	}

	for _, item := range m.UnresolvedItems() {
		add(item, item.Meta.SuggestedLibraryName, true)
	}
	for _, item := range m.Items() {
		add(item, item.Meta.LibraryName, false)
	}

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, *byKey[key])
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].NeedsManualSelection != groups[b].NeedsManualSelection {
			return groups[a].NeedsManualSelection
		}
		if groups[a].LibraryName != groups[b].LibraryName {
			return groups[a].LibraryName < groups[b].LibraryName
		}
		return groups[a].CollectionName < groups[b].CollectionName
	})
	return groups
}
