package tagview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Group names used by the controller firmware.
const (
	GroupConfig      = "config"
	GroupData        = "data"
	GroupCommand     = "cmd"
	GroupCommandInfo = "cmdInfo"
)

// GroupAliases folds reserved group names into their canonical routing name.
type GroupAliases map[string]string

// DefaultGroupAliases is the fixed table the firmware expects: command info tags
// are written back through the command group.
var DefaultGroupAliases = GroupAliases{GroupCommandInfo: GroupCommand}

// Canonical returns the routing name for group.
func (a GroupAliases) Canonical(group string) string {
	if canonical, ok := a[group]; ok {
		return canonical
	}
	return group
}

// Snapshot is one complete view of the device model, keyed by element name.
// Element order follows the order of the wire document.
type Snapshot struct {
	Elements []*Element
}

// Element is one named device entity with its tag groups.
type Element struct {
	Name    string
	Comment string
	Groups  []TagGroup
}

// TagGroup is a named collection of tags inside an element.
type TagGroup struct {
	Name string
	Tags []Tag
}

// Tag describes a single field. Value is nil when the producer sent none.
type Tag struct {
	Name     string       `json:"name" yaml:"name"`
	Text     string       `json:"text,omitempty" yaml:"text,omitempty"`
	Value    any          `json:"value,omitempty" yaml:"value,omitempty"`
	Type     *TagType     `json:"type,omitempty" yaml:"type,omitempty"`
	ReadOnly Flag         `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Unit     string       `json:"unit,omitempty" yaml:"unit,omitempty"`
	Comment  string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	On       string       `json:"on,omitempty" yaml:"on,omitempty"`
	Off      string       `json:"off,omitempty" yaml:"off,omitempty"`
	List     []ListOption `json:"list,omitempty" yaml:"list,omitempty"`
}

// ListOption is one entry of a list tag: the stored index and its display text.
type ListOption struct {
	Index int    `json:"i" yaml:"i"`
	Text  string `json:"v" yaml:"v"`
}

// Flag is a boolean that also accepts the 0/1 form the firmware emits.
type Flag bool

// Element returns the element named name, or nil.
func (s *Snapshot) Element(name string) *Element {
	if s == nil {
		return nil
	}
	for _, el := range s.Elements {
		if el.Name == name {
			return el
		}
	}
	return nil
}

// Group returns the tags of the named group and whether the group was present.
func (e *Element) Group(name string) ([]Tag, bool) {
	for _, g := range e.Groups {
		if g.Name == name {
			return g.Tags, true
		}
	}
	return nil, false
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Elements json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Elements = nil
	body := bytes.TrimSpace(raw.Elements)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if body[0] == '[' {
		return fmt.Errorf("elements must be an object keyed by element name")
	}
	keys, values, err := orderedObject(body)
	if err != nil {
		return fmt.Errorf("failed to decode elements: %w", err)
	}
	for i, name := range keys {
		el := &Element{}
		if err := json.Unmarshal(values[i], el); err != nil {
			return fmt.Errorf("element %q: %w", name, err)
		}
		el.Name = name
		s.Elements = append(s.Elements, el)
	}
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"elements":{`)
	for i, el := range s.Elements {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(el.Name)
		buf.Write(key)
		buf.WriteByte(':')
		body, err := json.Marshal(el)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func (e *Element) UnmarshalJSON(data []byte) error {
	keys, values, err := orderedObject(data)
	if err != nil {
		return err
	}
	e.Groups = nil
	for i, key := range keys {
		value := bytes.TrimSpace(values[i])
		switch {
		case key == "comment":
			if err := json.Unmarshal(value, &e.Comment); err != nil {
				return fmt.Errorf("comment: %w", err)
			}
		case len(value) > 0 && value[0] == '[':
			var raws []json.RawMessage
			if err := json.Unmarshal(value, &raws); err != nil {
				return fmt.Errorf("group %q: %w", key, err)
			}
			e.Groups = append(e.Groups, TagGroup{Name: key, Tags: decodeTagsJSON(key, raws)})
		case len(value) > 0 && value[0] == '{':
			// Value-only form: {"tagName": value, ...}
			names, raws, err := orderedObject(value)
			if err != nil {
				return fmt.Errorf("group %q: %w", key, err)
			}
			tags := make([]Tag, 0, len(names))
			for j, name := range names {
				var v any
				if err := json.Unmarshal(raws[j], &v); err != nil {
					return fmt.Errorf("group %q tag %q: %w", key, name, err)
				}
				tags = append(tags, Tag{Name: name, Value: v})
			}
			e.Groups = append(e.Groups, TagGroup{Name: key, Tags: tags})
		}
	}
	return nil
}

// decodeTagsJSON decodes a group's tags one at a time. A malformed tag is
// logged and left out so the rest of the group still renders.
func decodeTagsJSON(group string, raws []json.RawMessage) []Tag {
	tags := make([]Tag, 0, len(raws))
	for i, raw := range raws {
		var tag Tag
		if err := json.Unmarshal(raw, &tag); err != nil {
			var named struct {
				Name string `json:"name"`
			}
			json.Unmarshal(raw, &named)
			ErrorLog("[MODEL] Dropped tag %d (%q) in group %q: %v\n", i, named.Name, group, err)
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func decodeTagsYAML(group string, nodes []*yaml.Node) []Tag {
	tags := make([]Tag, 0, len(nodes))
	for i, node := range nodes {
		var tag Tag
		if err := node.Decode(&tag); err != nil {
			ErrorLog("[MODEL] Dropped tag %d in group %q (line %d): %v\n", i, group, node.Line, err)
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func (e Element) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	if e.Comment != "" {
		comment, _ := json.Marshal(e.Comment)
		buf.WriteString(`"comment":`)
		buf.Write(comment)
		first = false
	}
	for _, g := range e.Groups {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(g.Name)
		buf.Write(key)
		buf.WriteByte(':')
		tags := g.Tags
		if tags == nil {
			tags = []Tag{}
		}
		body, err := json.Marshal(tags)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalYAML(value *yaml.Node) error {
	s.Elements = nil
	var elements *yaml.Node
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "elements" {
			elements = value.Content[i+1]
		}
	}
	if elements == nil {
		return nil
	}
	if elements.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: elements must be a mapping keyed by element name", elements.Line)
	}
	for i := 0; i+1 < len(elements.Content); i += 2 {
		el := &Element{}
		if err := elements.Content[i+1].Decode(el); err != nil {
			return fmt.Errorf("element %q: %w", elements.Content[i].Value, err)
		}
		el.Name = elements.Content[i].Value
		s.Elements = append(s.Elements, el)
	}
	return nil
}

func (e *Element) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: element must be a mapping", value.Line)
	}
	e.Groups = nil
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, node := value.Content[i].Value, value.Content[i+1]
		switch {
		case key == "comment":
			e.Comment = node.Value
		case node.Kind == yaml.SequenceNode:
			e.Groups = append(e.Groups, TagGroup{Name: key, Tags: decodeTagsYAML(key, node.Content)})
		case node.Kind == yaml.MappingNode:
			tags := make([]Tag, 0, len(node.Content)/2)
			for j := 0; j+1 < len(node.Content); j += 2 {
				var v any
				if err := node.Content[j+1].Decode(&v); err != nil {
					return fmt.Errorf("group %q tag %q: %w", key, node.Content[j].Value, err)
				}
				tags = append(tags, Tag{Name: node.Content[j].Value, Value: v})
			}
			e.Groups = append(e.Groups, TagGroup{Name: key, Tags: tags})
		}
	}
	return nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = n != 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid flag %s", string(data))
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid flag %q", s)
	}
	*f = Flag(b)
	return nil
}

func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	var b bool
	if err := value.Decode(&b); err == nil {
		*f = Flag(b)
		return nil
	}
	var n int
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("line %d: invalid flag %q", value.Line, value.Value)
	}
	*f = n != 0
	return nil
}

func (o *ListOption) UnmarshalJSON(data []byte) error {
	var raw struct {
		Index json.RawMessage `json:"i"`
		Text  string          `json:"v"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Text = raw.Text
	var n int
	if err := json.Unmarshal(raw.Index, &n); err == nil {
		o.Index = n
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Index, &s); err != nil {
		return fmt.Errorf("list index: %w", err)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("list index %q: %w", s, err)
	}
	o.Index = n
	return nil
}

// orderedObject splits a JSON object into its keys and raw values, keeping document order.
func orderedObject(data []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	var values []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}
