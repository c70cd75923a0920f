package tagview

// Tree is the rendered widget tree: element records keyed by element name,
// each owning its tag records keyed by tag name.
type Tree struct {
	elements map[string]*ElementNode
	order    []string
}

func NewTree() *Tree {
	return &Tree{elements: make(map[string]*ElementNode)}
}

// Element looks up an element record by name.
func (t *Tree) Element(name string) (*ElementNode, bool) {
	el, ok := t.elements[name]
	return el, ok
}

// Tag looks up a tag record by element name and tag name.
func (t *Tree) Tag(element, tag string) (*TagNode, bool) {
	el, ok := t.elements[element]
	if !ok {
		return nil, false
	}
	return el.Tag(tag)
}

// Elements returns the element records in creation order.
func (t *Tree) Elements() []*ElementNode {
	out := make([]*ElementNode, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.elements[name])
	}
	return out
}

func (t *Tree) Len() int { return len(t.order) }

func (t *Tree) attach(el *ElementNode) {
	t.elements[el.name] = el
	t.order = append(t.order, el.name)
}

func (t *Tree) remove(name string) bool {
	if _, ok := t.elements[name]; !ok {
		return false
	}
	delete(t.elements, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// ElementNode is the container of one model element.
type ElementNode struct {
	name    string
	comment string
	tags    map[string]*TagNode
	order   []string
}

func (e *ElementNode) Name() string { return e.name }
func (e *ElementNode) Comment() string { return e.comment }
func (e *ElementNode) Len() int { return len(e.order) }

func (e *ElementNode) Tag(name string) (*TagNode, bool) {
	tn, ok := e.tags[name]
	return tn, ok
}

// Tags returns the tag records in creation order.
func (e *ElementNode) Tags() []*TagNode {
	out := make([]*TagNode, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.tags[name])
	}
	return out
}

// TagNode is the record of one rendered tag. It owns the widget and the
// pending-edit flag that guards the widget against incoming snapshots.
type TagNode struct {
	element          *ElementNode
	group            string
	name             string
	label            string
	tooltip          string
	widget           *Widget
	pendingLocalEdit bool
}

func (t *TagNode) Element() *ElementNode { return t.element }
func (t *TagNode) Name() string { return t.name }
func (t *TagNode) Label() string { return t.label }
func (t *TagNode) Tooltip() string { return t.tooltip }
func (t *TagNode) Widget() *Widget { return t.widget }

// Group is the group name the tag was first rendered under, before aliasing.
func (t *TagNode) Group() string { return t.group }

// PendingLocalEdit reports whether the user is editing this tag.
func (t *TagNode) PendingLocalEdit() bool { return t.pendingLocalEdit }
