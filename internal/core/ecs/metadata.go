package ecs

import "sort"

// Metadata is the optional per-entity side table: display name, persistent
// UUID, hierarchy links, tags, and the active flag. Pure data; the Registry
// guards access and keeps parent/child links mutually consistent.
type Metadata struct {
	Name     string
	UUID     string
	Parent   EntityID
	Children []EntityID
	Tags     map[string]struct{}
	Active   bool
}

func newMetadata() *Metadata {
	return &Metadata{
		Tags:   make(map[string]struct{}),
		Active: true,
	}
}

func (m *Metadata) hasChild(id EntityID) bool {
	for _, c := range m.Children {
		if c == id {
			return true
		}
	}
	return false
}

func (m *Metadata) removeChild(id EntityID) {
	for i, c := range m.Children {
		if c == id {
			m.Children = append(m.Children[:i], m.Children[i+1:]...)
			return
		}
	}
}

// sortedTags returns the tag set as a deterministic slice for serialization
// and inspection.
func (m *Metadata) sortedTags() []string {
	tags := make([]string, 0, len(m.Tags))
	for t := range m.Tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
