package devicesim

import (
	"fmt"
	"sync"

	tagview "tagview/engine/core"
)

// Store holds the simulated device model in memory.
type Store struct {
	mu      sync.RWMutex
	model   *tagview.Snapshot
	aliases tagview.GroupAliases
	version int64
}

// NewStore takes ownership of model.
func NewStore(model *tagview.Snapshot) *Store {
	if model == nil {
		model = &tagview.Snapshot{}
	}
	return &Store{model: model, aliases: tagview.DefaultGroupAliases}
}

// Snapshot returns a copy of the current model. Tag values are scalars, so
// copying the element, group and tag slices is enough.
func (s *Store) Snapshot() *tagview.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.model)
}

// Version increases on every change of the model.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Apply writes the values of m into the model. Writes are routed by canonical
// group, so a "cmd" write also reaches tags listed under "cmdInfo". Writes to
// unknown or read-only tags are returned as rejected.
func (s *Store) Apply(m *tagview.Mutation) (applied int, rejected []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for element, groups := range m.Elements {
		el := s.model.Element(element)
		for group, values := range groups {
			for _, tv := range values {
				path := fmt.Sprintf("%s/%s/%s", element, group, tv.Name)
				tag := s.findTag(el, group, tv.Name)
				if tag == nil || bool(tag.ReadOnly) {
					rejected = append(rejected, path)
					continue
				}
				tag.Value = tv.Value
				applied++
			}
		}
	}
	if applied > 0 {
		s.version++
	}
	return applied, rejected
}

// update runs fn on the live model under the write lock and bumps the version
// when fn reports a change.
func (s *Store) update(fn func(model *tagview.Snapshot) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fn(s.model) {
		return false
	}
	s.version++
	return true
}

func (s *Store) findTag(el *tagview.Element, group, name string) *tagview.Tag {
	if el == nil {
		return nil
	}
	for gi := range el.Groups {
		g := &el.Groups[gi]
		if s.aliases.Canonical(g.Name) != group {
			continue
		}
		for ti := range g.Tags {
			if g.Tags[ti].Name == name {
				return &g.Tags[ti]
			}
		}
	}
	return nil
}

func cloneSnapshot(src *tagview.Snapshot) *tagview.Snapshot {
	out := &tagview.Snapshot{Elements: make([]*tagview.Element, 0, len(src.Elements))}
	for _, el := range src.Elements {
		copied := &tagview.Element{Name: el.Name, Comment: el.Comment}
		for _, g := range el.Groups {
			copied.Groups = append(copied.Groups, tagview.TagGroup{
				Name: g.Name,
				Tags: append([]tagview.Tag(nil), g.Tags...),
			})
		}
		out.Elements = append(out.Elements, copied)
	}
	return out
}
