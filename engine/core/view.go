package tagview

// ElementView is a read-only copy of an element record, for hosts that serve
// or print the tree.
type ElementView struct {
	Name    string    `json:"name" yaml:"name"`
	Comment string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	Tags    []TagView `json:"tags" yaml:"tags"`
}

// TagView is a read-only copy of a tag record and its widget state.
type TagView struct {
	Name     string `json:"name" yaml:"name"`
	Group    string `json:"group" yaml:"group"`
	Label    string `json:"label" yaml:"label"`
	Tooltip  string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Unit     string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Kind     string `json:"kind" yaml:"kind"`
	Source   string `json:"source" yaml:"source"`
	Command  bool   `json:"command,omitempty" yaml:"command,omitempty"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Hook     string `json:"hook" yaml:"hook"`
	Display  string `json:"display" yaml:"display"`
	Style    string `json:"style,omitempty" yaml:"style,omitempty"`
	Pending  bool   `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// View copies the whole tree in creation order.
func (t *Tree) View() []ElementView {
	out := make([]ElementView, 0, t.Len())
	for _, el := range t.Elements() {
		out = append(out, el.View())
	}
	return out
}

func (e *ElementNode) View() ElementView {
	v := ElementView{Name: e.name, Comment: e.comment, Tags: make([]TagView, 0, len(e.order))}
	for _, tn := range e.Tags() {
		v.Tags = append(v.Tags, tn.View())
	}
	return v
}

func (t *TagNode) View() TagView {
	w := t.widget
	return TagView{
		Name:     t.name,
		Group:    t.group,
		Label:    t.label,
		Tooltip:  t.tooltip,
		Unit:     w.unit,
		Kind:     w.kind.String(),
		Source:   w.source.String(),
		Command:  w.command,
		Disabled: w.disabled,
		Hook:     w.hook.String(),
		Display:  w.display,
		Style:    w.style,
		Pending:  t.pendingLocalEdit,
	}
}
