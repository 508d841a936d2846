// Package protoprops turns protobuf messages into C# property blocks for the
// PROPERTIES and FILTER_PROPERTIES placeholders.
package protoprops

import (
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/emicklei/proto"

	"github.com/mohamedhabibwork/abp-script/naming"
)

const (
	pbTimeStamp = "google.protobuf.Timestamp"
	pbDuration  = "google.protobuf.Duration"
)

// Block keys filled from a message.
const (
	KeyProperties       = "PROPERTIES"
	KeyFilterProperties = "FILTER_PROPERTIES"
)

// ErrMessageNotFound is returned when the proto file lacks the requested message.
var ErrMessageNotFound = errors.New("message not found")

var scalars = map[string]string{
	"double":   "double",
	"float":    "float",
	"int32":    "int",
	"sint32":   "int",
	"sfixed32": "int",
	"int64":    "long",
	"sint64":   "long",
	"sfixed64": "long",
	"uint32":   "uint",
	"fixed32":  "uint",
	"uint64":   "ulong",
	"fixed64":  "ulong",
	"bool":     "bool",
	"string":   "string",
	"bytes":    "byte[]",

	pbTimeStamp: "DateTime",
	pbDuration:  "TimeSpan",
}

// wrappers are the nullable well-known types.
var wrappers = map[string]string{
	"google.protobuf.DoubleValue": "double?",
	"google.protobuf.FloatValue":  "float?",
	"google.protobuf.Int32Value":  "int?",
	"google.protobuf.Int64Value":  "long?",
	"google.protobuf.UInt32Value": "uint?",
	"google.protobuf.UInt64Value": "ulong?",
	"google.protobuf.BoolValue":   "bool?",
	"google.protobuf.StringValue": "string?",
}

// Message is a parsed protobuf message.
type Message struct {
	Name   string
	Parent []string
	Field  []*Field
}

// Field is one message field.
type Field struct {
	Name     string
	Type     string
	KeyType  string
	Comment  string
	Repeated bool
	Optional bool
	LenIfStr string
}

// Parse reads every message of a proto file, keyed by name. Nested messages are
// keyed by their dotted path too ("Outer.Inner").
func Parse(r io.Reader) (map[string]*Message, error) {
	definition, err := proto.NewParser(r).Parse()
	if err != nil {
		return nil, errors.Wrap(err, "parse proto")
	}
	messages := make(map[string]*Message)
	proto.Walk(definition,
		proto.WithMessage(func(pm *proto.Message) {
			msg := &Message{Name: pm.Name}
			for _, e := range pm.Elements {
				switch pf := e.(type) {
				case *proto.NormalField:
					f := newField(pf.Field)
					f.Repeated = pf.Repeated
					f.Optional = pf.Optional
					msg.Field = append(msg.Field, f)
				case *proto.MapField:
					f := newField(pf.Field)
					f.KeyType = pf.KeyType
					msg.Field = append(msg.Field, f)
				}
			}
			parent, ok := pm.Parent.(*proto.Message)
			for ok {
				msg.Parent = append([]string{parent.Name}, msg.Parent...)
				parent, ok = parent.Parent.(*proto.Message)
			}
			messages[pm.Name] = msg
			if len(msg.Parent) > 0 {
				messages[strings.Join(append(append([]string{}, msg.Parent...), pm.Name), ".")] = msg
			}
		}),
	)
	return messages, nil
}

func newField(pf *proto.Field) *Field {
	f := &Field{Name: pf.Name, Type: pf.Type}
	switch {
	case pf.Comment != nil:
		f.Comment = strings.TrimSpace(pf.Comment.Message())
	case pf.InlineComment != nil:
		f.Comment = strings.TrimSpace(pf.InlineComment.Message())
	}
	if pf.Type == "string" {
		for _, opt := range pf.Options {
			if opt.Name != "(validate.rules).string" {
				continue
			}
			for _, c := range opt.AggregatedConstants {
				if c.Literal != nil && (c.Name == "max_bytes" || c.Name == "max_len") {
					f.LenIfStr = c.Literal.Source
				}
			}
		}
	}
	return f
}

// Load parses r and returns the named message.
func Load(r io.Reader, name string) (*Message, error) {
	messages, err := Parse(r)
	if err != nil {
		return nil, err
	}
	m, ok := messages[name]
	if !ok {
		known := make([]string, 0, len(messages))
		for k := range messages {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, errors.WithHintf(errors.Wrapf(ErrMessageNotFound, "%q", name), "messages in file: %s", strings.Join(known, ", "))
	}
	return m, nil
}

// skipped reports fields the ABP base classes already declare.
func skipped(f *Field) bool {
	switch f.Name {
	case "id", "tenant_id", "creation_time", "creator_id", "last_modification_time",
		"last_modifier_id", "is_deleted", "deleter_id", "deletion_time":
		return true
	}
	return false
}

// Properties renders one auto-property per field, unindented and newline
// separated.
func (m *Message) Properties() string {
	var lines []string
	for _, f := range m.Field {
		if skipped(f) {
			continue
		}
		if f.Comment != "" {
			lines = append(lines, "/// <summary>"+f.Comment+"</summary>")
		}
		if f.LenIfStr != "" {
			lines = append(lines, "[StringLength("+f.LenIfStr+")]")
		}
		lines = append(lines, "public "+f.csType()+" "+propName(f.Name)+" { get; set; }"+f.initializer())
	}
	return strings.Join(lines, "\n")
}

// FilterProperties renders nullable filter properties for the scalar fields.
// Time stamps get a From/To range.
func (m *Message) FilterProperties() string {
	var lines []string
	for _, f := range m.Field {
		if skipped(f) || f.Repeated || f.KeyType != "" {
			continue
		}
		name := propName(f.Name)
		if w, ok := wrappers[f.Type]; ok {
			lines = append(lines, "public "+w+" "+name+" { get; set; }")
			continue
		}
		t, ok := scalars[f.Type]
		switch {
		case !ok || t == "byte[]":
			continue
		case f.Type == pbTimeStamp:
			lines = append(lines,
				"public DateTime? "+name+"From { get; set; }",
				"public DateTime? "+name+"To { get; set; }",
			)
		default:
			lines = append(lines, "public "+t+"? "+name+" { get; set; }")
		}
	}
	return strings.Join(lines, "\n")
}

// Blocks returns both blocks keyed by placeholder.
func (m *Message) Blocks() map[string]string {
	return map[string]string{
		KeyProperties:       m.Properties(),
		KeyFilterProperties: m.FilterProperties(),
	}
}

func (f *Field) csType() string {
	if f.KeyType != "" {
		return "Dictionary<" + elemType(f.KeyType) + ", " + elemType(f.Type) + ">"
	}
	t := elemType(f.Type)
	if f.Repeated {
		return "List<" + t + ">"
	}
	if f.Optional && !strings.HasSuffix(t, "?") {
		return t + "?"
	}
	return t
}

func (f *Field) initializer() string {
	switch {
	case f.Repeated || f.KeyType != "":
		return " = new();"
	case !f.Optional && f.Type == "string":
		return " = string.Empty;"
	}
	return ""
}

func elemType(t string) string {
	if s, ok := scalars[t]; ok {
		return s
	}
	if w, ok := wrappers[t]; ok {
		return w
	}
	// message and enum types keep their name without the package
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return t
}

func propName(field string) string {
	return naming.Pascal(field)
}
