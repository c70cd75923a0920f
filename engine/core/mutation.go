package tagview

// TagValue is one written tag inside a mutation.
type TagValue struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Mutation is a write request for the owning model, grouped by element and
// canonical group: {"elements": {"<element>": {"<group>": [{"name", "value"}]}}}.
type Mutation struct {
	Elements map[string]map[string][]TagValue `json:"elements" yaml:"elements"`
}

// NewMutation builds a request that writes a single tag.
func NewMutation(element, group, tag string, value any) *Mutation {
	return &Mutation{
		Elements: map[string]map[string][]TagValue{
			element: {group: {{Name: tag, Value: value}}},
		},
	}
}

// Set adds or replaces one tag write.
func (m *Mutation) Set(element, group, tag string, value any) {
	if m.Elements == nil {
		m.Elements = make(map[string]map[string][]TagValue)
	}
	groups, ok := m.Elements[element]
	if !ok {
		groups = make(map[string][]TagValue)
		m.Elements[element] = groups
	}
	for i, tv := range groups[group] {
		if tv.Name == tag {
			groups[group][i].Value = value
			return
		}
	}
	groups[group] = append(groups[group], TagValue{Name: tag, Value: value})
}

// Merge folds other into m. Later writes to the same tag win.
func (m *Mutation) Merge(other *Mutation) {
	if other == nil {
		return
	}
	for element, groups := range other.Elements {
		for group, values := range groups {
			for _, tv := range values {
				m.Set(element, group, tv.Name, tv.Value)
			}
		}
	}
}

// Value returns the value written to element/group/tag, if any.
func (m *Mutation) Value(element, group, tag string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, tv := range m.Elements[element][group] {
		if tv.Name == tag {
			return tv.Value, true
		}
	}
	return nil, false
}

// Len counts the tag writes in m.
func (m *Mutation) Len() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, groups := range m.Elements {
		for _, values := range groups {
			n += len(values)
		}
	}
	return n
}
