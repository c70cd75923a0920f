package tagview

import "fmt"

// RenderStats summarises one reconcile pass.
type RenderStats struct {
	ElementsCreated int `json:"elements_created"`
	TagsCreated     int `json:"tags_created"`
	TagsSkipped     int `json:"tags_skipped"`
	ValuesApplied   int `json:"values_applied"`
	ValuesDeferred  int `json:"values_deferred"`
	ValuesRejected  int `json:"values_rejected"`
}

func (s RenderStats) String() string {
	return fmt.Sprintf("elements+%d tags+%d skipped=%d applied=%d deferred=%d rejected=%d",
		s.ElementsCreated, s.TagsCreated, s.TagsSkipped, s.ValuesApplied, s.ValuesDeferred, s.ValuesRejected)
}

// Reconciler keeps a Tree in step with successive snapshots. It never removes
// nodes on its own and never recreates a node that already exists.
//
// A Reconciler is not safe for concurrent use; callers serialise Render, Refresh
// and the edit calls on one event loop.
type Reconciler struct {
	tree          *Tree
	builder       *ElementBuilder
	codec         Codec
	aliases       GroupAliases
	commandGroups map[string]bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithCodec(c Codec) Option {
	return func(r *Reconciler) { r.codec = c }
}

func WithGroupAliases(a GroupAliases) Option {
	return func(r *Reconciler) { r.aliases = a }
}

// WithCommandGroups sets the groups whose boolean tags render as command buttons.
func WithCommandGroups(groups ...string) Option {
	return func(r *Reconciler) {
		r.commandGroups = make(map[string]bool, len(groups))
		for _, g := range groups {
			r.commandGroups[g] = true
		}
	}
}

func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{
		tree:          NewTree(),
		builder:       NewElementBuilder(&Factory{}),
		aliases:       DefaultGroupAliases,
		commandGroups: map[string]bool{GroupCommand: true},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) Tree() *Tree { return r.tree }
func (r *Reconciler) Codec() Codec { return r.codec }
func (r *Reconciler) Aliases() GroupAliases { return r.aliases }

type selectedTag struct {
	group string
	tag   Tag
}

// Render creates missing element and tag nodes for the tags of the selected group
// and pushes the snapshot's values into them. Groups are matched after aliasing,
// so selecting either name of an aliased pair selects both.
func (r *Reconciler) Render(s *Snapshot, group string) RenderStats {
	var stats RenderStats
	if s == nil {
		return stats
	}
	canonical := r.aliases.Canonical(group)
	for _, el := range s.Elements {
		if el == nil || el.Name == "" {
			continue
		}
		var selected []selectedTag
		for _, g := range el.Groups {
			if r.aliases.Canonical(g.Name) != canonical {
				continue
			}
			for _, tag := range g.Tags {
				selected = append(selected, selectedTag{group: g.Name, tag: tag})
			}
		}
		if len(selected) == 0 {
			continue
		}

		node, ok := r.tree.Element(el.Name)
		if !ok {
			node = r.builder.BuildElement(el)
			r.tree.attach(node)
			stats.ElementsCreated++
			DebugLog("[RECONCILE] Created element %q\n", el.Name)
		}

		for _, sel := range selected {
			if sel.tag.Name == "" {
				stats.TagsSkipped++
				continue
			}
			tn, ok := node.Tag(sel.tag.Name)
			if !ok {
				opts := BuildOptions{Command: r.commandGroups[sel.group]}
				tn, ok = r.builder.BuildTag(node, sel.group, sel.tag, opts)
				if !ok {
					stats.TagsSkipped++
					DebugLog("[RECONCILE] Skipped tag %s/%s: no widget kind for value %v\n", el.Name, sel.tag.Name, sel.tag.Value)
					continue
				}
				stats.TagsCreated++
			}
			r.push(tn, sel.tag.Value, &stats)
		}
	}
	return stats
}

// Refresh pushes the snapshot's values into nodes that already exist. Unknown
// elements and tags are ignored, as are tags from groups other than the one a
// node was rendered from.
func (r *Reconciler) Refresh(s *Snapshot) RenderStats {
	var stats RenderStats
	if s == nil {
		return stats
	}
	for _, el := range s.Elements {
		if el == nil {
			continue
		}
		node, ok := r.tree.Element(el.Name)
		if !ok {
			continue
		}
		for _, g := range el.Groups {
			canonical := r.aliases.Canonical(g.Name)
			for _, tag := range g.Tags {
				tn, ok := node.Tag(tag.Name)
				if !ok || r.aliases.Canonical(tn.group) != canonical {
					continue
				}
				r.push(tn, tag.Value, &stats)
			}
		}
	}
	return stats
}

// push writes value into the tag's widget unless the user is editing it.
func (r *Reconciler) push(tn *TagNode, value any, stats *RenderStats) {
	if value == nil {
		return
	}
	if tn.pendingLocalEdit {
		stats.ValuesDeferred++
		return
	}
	w := tn.widget
	if w.kind == KindToggle {
		if w.command {
			return
		}
		on, ok := toBool(value)
		if !ok {
			stats.ValuesRejected++
			ErrorLog("[RECONCILE] %s/%s: %v is not a boolean\n", tn.element.name, tn.name, value)
			return
		}
		if on {
			w.display, w.style = w.hints.On, StylePrimary
		} else {
			w.display, w.style = w.hints.Off, StylePrimaryOutline
		}
		stats.ValuesApplied++
		return
	}
	display, err := r.codec.Encode(w.kind, value, w.hints)
	if err != nil {
		stats.ValuesRejected++
		ErrorLog("[RECONCILE] %s/%s: %v\n", tn.element.name, tn.name, err)
		return
	}
	w.display = display
	stats.ValuesApplied++
}

// Lookup returns the tag record addressed by element and tag name.
func (r *Reconciler) Lookup(element, tag string) (*TagNode, error) {
	el, ok := r.tree.Element(element)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownElement, element)
	}
	tn, ok := el.Tag(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownTag, element, tag)
	}
	return tn, nil
}

// BeginEdit marks a tag as being edited; refreshes leave it alone until the
// edit is committed by the extractor or cancelled.
func (r *Reconciler) BeginEdit(element, tag string) error {
	tn, err := r.Lookup(element, tag)
	if err != nil {
		return err
	}
	if tn.widget.hook == HookNone {
		return fmt.Errorf("%w: %s/%s", ErrWidgetDisabled, element, tag)
	}
	tn.pendingLocalEdit = true
	return nil
}

// Input replaces a widget's display as if the user typed it.
func (r *Reconciler) Input(element, tag, display string) error {
	tn, err := r.Lookup(element, tag)
	if err != nil {
		return err
	}
	if err := tn.widget.Input(display); err != nil {
		return fmt.Errorf("%s/%s: %w", element, tag, err)
	}
	return nil
}

// CancelEdit drops the pending-edit mark without producing a request. The next
// refresh overwrites whatever the user left in the widget.
func (r *Reconciler) CancelEdit(element, tag string) error {
	tn, err := r.Lookup(element, tag)
	if err != nil {
		return err
	}
	tn.pendingLocalEdit = false
	return nil
}

// RemoveElement drops an element and its tags. Only owning collaborators call
// this (for example when a paired device is deleted); reconcile passes never do.
func (r *Reconciler) RemoveElement(name string) bool {
	return r.tree.remove(name)
}
