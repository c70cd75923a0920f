package tagview

// ElementBuilder creates element containers and their tag rows.
type ElementBuilder struct {
	factory *Factory
}

func NewElementBuilder(factory *Factory) *ElementBuilder {
	if factory == nil {
		factory = &Factory{}
	}
	return &ElementBuilder{factory: factory}
}

// BuildElement creates the container for el. The header is the element name and
// the comment becomes the annotation; neither changes after this call.
func (b *ElementBuilder) BuildElement(el *Element) *ElementNode {
	return &ElementNode{
		name:    el.Name,
		comment: el.Comment,
		tags:    make(map[string]*TagNode),
	}
}

// BuildTag creates the row for tag inside node. It returns false, and leaves node
// untouched, when the tag has no resolvable widget kind.
func (b *ElementBuilder) BuildTag(node *ElementNode, group string, tag Tag, opts BuildOptions) (*TagNode, bool) {
	w, ok := b.factory.Build(tag, opts)
	if !ok {
		return nil, false
	}
	label := tag.Text
	if label == "" {
		label = tag.Name
	}
	tn := &TagNode{
		element: node,
		group:   group,
		name:    tag.Name,
		label:   label,
		tooltip: tag.Comment,
		widget:  w,
	}
	w.owner = tn
	node.tags[tag.Name] = tn
	node.order = append(node.order, tag.Name)
	return tn, true
}
