// Package avro implements a reader for the Avro object container file
// format: the embedded JSON schema grammar, the binary value encoding, and
// the block-structured container layout. It decodes without ever
// materializing more than one block at a time, so arbitrarily large files can
// be explored with bounded memory.
//
// The package is decode-only. Writing containers is out of scope; tests pair
// this reader with an independent encoder to prove round-trip fidelity.
package avro

import (
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

// Kind identifies the shape of a schema type node. The set is closed;
// DecodeValue switches exhaustively over it.
type Kind int

const (
	// KindNull is the null type: zero bytes on the wire.
	KindNull Kind = iota
	// KindBoolean is a single byte, nonzero meaning true.
	KindBoolean
	// KindInt is a 32-bit signed integer, varint/zigzag encoded.
	KindInt
	// KindLong is a 64-bit signed integer, varint/zigzag encoded.
	KindLong
	// KindFloat is a 4-byte little-endian IEEE-754 value.
	KindFloat
	// KindDouble is an 8-byte little-endian IEEE-754 value.
	KindDouble
	// KindBytes is a length-prefixed byte sequence.
	KindBytes
	// KindString is a length-prefixed UTF-8 byte sequence.
	KindString
	// KindRecord is an ordered sequence of named fields.
	KindRecord
	// KindEnum is a varint index into an ordered symbol list.
	KindEnum
	// KindArray is a block-encoded sequence of one item type.
	KindArray
	// KindMap is a block-encoded sequence of string-keyed entries.
	KindMap
	// KindUnion is a varint branch index followed by that branch's value.
	KindUnion
	// KindFixed is an exact number of raw bytes, sized by the schema.
	KindFixed
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBoolean: "boolean",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBytes:   "bytes",
	KindString:  "string",
	KindRecord:  "record",
	KindEnum:    "enum",
	KindArray:   "array",
	KindMap:     "map",
	KindUnion:   "union",
	KindFixed:   "fixed",
}

// String returns the schema-grammar spelling of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Type is one node of the parsed schema tree. Exactly the fields relevant to
// Kind are populated; the rest stay zero.
type Type struct {
	Kind Kind

	// Name is the fully qualified name for record, enum, and fixed types.
	Name string

	// Fields is the ordered field list of a record.
	Fields []Field

	// Symbols is the ordered symbol list of an enum.
	Symbols []string

	// Items is the element type of an array.
	Items *Type

	// Values is the value type of a map (keys are always strings).
	Values *Type

	// Branches is the ordered alternative list of a union.
	Branches []*Type

	// Size is the byte length of a fixed type.
	Size int
}

// Field is one named, ordered member of a record type.
type Field struct {
	Name    string
	Type    *Type
	Default interface{}
	// HasDefault distinguishes an explicit null default from no default.
	HasDefault bool
}

var primitives = map[string]Kind{
	"null":    KindNull,
	"boolean": KindBoolean,
	"int":     KindInt,
	"long":    KindLong,
	"float":   KindFloat,
	"double":  KindDouble,
	"bytes":   KindBytes,
	"string":  KindString,
}

// ParseSchema parses Avro schema JSON text into a type tree. Named types
// (record, enum, fixed) register into a symbol table keyed by fully
// qualified name before their bodies are resolved, so self-referential and
// forward-referenced types parse correctly. Duplicate registrations,
// missing required attributes, unknown type names, and ambiguous unions all
// fail with an invalid_schema error.
func ParseSchema(schemaJSON []byte) (*Type, error) {
	var raw interface{}
	if err := gojson.Unmarshal(schemaJSON, &raw); err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeInvalidSchema,
			"schema is not valid JSON")
	}

	p := &schemaParser{named: make(map[string]*Type)}
	return p.parse(raw, "")
}

// schemaParser carries the symbol table of named types for one parse. The
// table is parse-local: two files with clashing type names never interfere.
type schemaParser struct {
	named map[string]*Type
}

func (p *schemaParser) parse(raw interface{}, enclosing string) (*Type, error) {
	switch v := raw.(type) {
	case string:
		return p.resolveName(v, enclosing)
	case []interface{}:
		return p.parseUnion(v, enclosing)
	case map[string]interface{}:
		return p.parseObject(v, enclosing)
	default:
		return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			"schema must be a string, object, or array, got %T", raw)
	}
}

// resolveName maps a bare type name to a primitive or a previously
// registered named type, trying the enclosing namespace first for
// unqualified names.
func (p *schemaParser) resolveName(name, enclosing string) (*Type, error) {
	if kind, ok := primitives[name]; ok {
		return &Type{Kind: kind}, nil
	}
	if !strings.Contains(name, ".") && enclosing != "" {
		if t, ok := p.named[enclosing+"."+name]; ok {
			return t, nil
		}
	}
	if t, ok := p.named[name]; ok {
		return t, nil
	}
	return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
		"unknown type name %q", name).WithDetail("name", name)
}

func (p *schemaParser) parseUnion(raw []interface{}, enclosing string) (*Type, error) {
	if len(raw) == 0 {
		return nil, avroerrors.New(avroerrors.ErrorTypeInvalidSchema,
			"union must list at least one type")
	}

	union := &Type{Kind: KindUnion, Branches: make([]*Type, 0, len(raw))}
	seen := make(map[string]bool, len(raw))

	for _, branchRaw := range raw {
		branch, err := p.parse(branchRaw, enclosing)
		if err != nil {
			return nil, err
		}
		// A union may hold at most one branch per named-type name and at
		// most one per unnamed kind; anything else is undecodable.
		key := branch.Kind.String()
		if branch.Name != "" {
			key = branch.Name
		}
		if seen[key] {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
				"union has ambiguous duplicate branch %q", key)
		}
		seen[key] = true
		union.Branches = append(union.Branches, branch)
	}
	return union, nil
}

func (p *schemaParser) parseObject(raw map[string]interface{}, enclosing string) (*Type, error) {
	typeAttr, ok := raw["type"]
	if !ok {
		return nil, avroerrors.New(avroerrors.ErrorTypeInvalidSchema,
			`schema object is missing "type"`)
	}

	typeName, ok := typeAttr.(string)
	if !ok {
		// Avro permits nesting a full schema under "type".
		return p.parse(typeAttr, enclosing)
	}

	switch typeName {
	case "record":
		return p.parseRecord(raw, enclosing)
	case "enum":
		return p.parseEnum(raw, enclosing)
	case "fixed":
		return p.parseFixed(raw, enclosing)
	case "array":
		items, ok := raw["items"]
		if !ok {
			return nil, avroerrors.New(avroerrors.ErrorTypeInvalidSchema,
				`array schema is missing "items"`)
		}
		itemType, err := p.parse(items, enclosing)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindArray, Items: itemType}, nil
	case "map":
		values, ok := raw["values"]
		if !ok {
			return nil, avroerrors.New(avroerrors.ErrorTypeInvalidSchema,
				`map schema is missing "values"`)
		}
		valueType, err := p.parse(values, enclosing)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindMap, Values: valueType}, nil
	default:
		// {"type": "string", ...} and friends: attributes such as
		// logicalType do not change the wire encoding.
		return p.resolveName(typeName, enclosing)
	}
}

func (p *schemaParser) parseRecord(raw map[string]interface{}, enclosing string) (*Type, error) {
	fullName, namespace, err := p.qualifiedName(raw, enclosing, "record")
	if err != nil {
		return nil, err
	}

	rec := &Type{Kind: KindRecord, Name: fullName}
	// Register before resolving fields so the record can reference itself.
	if err := p.register(rec); err != nil {
		return nil, err
	}

	fieldsRaw, ok := raw["fields"].([]interface{})
	if !ok {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			`record %q is missing its "fields" array`, fullName)
	}

	rec.Fields = make([]Field, 0, len(fieldsRaw))
	for i, fieldRaw := range fieldsRaw {
		fieldObj, ok := fieldRaw.(map[string]interface{})
		if !ok {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
				"record %q field %d is not an object", fullName, i)
		}
		name, ok := fieldObj["name"].(string)
		if !ok {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
				`record %q field %d is missing "name"`, fullName, i)
		}
		typeRaw, ok := fieldObj["type"]
		if !ok {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
				`record %q field %q is missing "type"`, fullName, name)
		}
		fieldType, err := p.parse(typeRaw, namespace)
		if err != nil {
			return nil, err
		}
		field := Field{Name: name, Type: fieldType}
		if def, ok := fieldObj["default"]; ok {
			field.Default = def
			field.HasDefault = true
		}
		rec.Fields = append(rec.Fields, field)
	}
	return rec, nil
}

func (p *schemaParser) parseEnum(raw map[string]interface{}, enclosing string) (*Type, error) {
	fullName, _, err := p.qualifiedName(raw, enclosing, "enum")
	if err != nil {
		return nil, err
	}

	symbolsRaw, ok := raw["symbols"].([]interface{})
	if !ok {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			`enum %q is missing its "symbols" array`, fullName)
	}
	symbols := make([]string, 0, len(symbolsRaw))
	for i, symRaw := range symbolsRaw {
		sym, ok := symRaw.(string)
		if !ok {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
				"enum %q symbol %d is not a string", fullName, i)
		}
		symbols = append(symbols, sym)
	}

	enum := &Type{Kind: KindEnum, Name: fullName, Symbols: symbols}
	if err := p.register(enum); err != nil {
		return nil, err
	}
	return enum, nil
}

func (p *schemaParser) parseFixed(raw map[string]interface{}, enclosing string) (*Type, error) {
	fullName, _, err := p.qualifiedName(raw, enclosing, "fixed")
	if err != nil {
		return nil, err
	}

	sizeRaw, ok := raw["size"].(float64)
	if !ok || sizeRaw != float64(int(sizeRaw)) || sizeRaw < 0 {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			`fixed %q requires a non-negative integer "size"`, fullName)
	}

	fixed := &Type{Kind: KindFixed, Name: fullName, Size: int(sizeRaw)}
	if err := p.register(fixed); err != nil {
		return nil, err
	}
	return fixed, nil
}

// qualifiedName computes the fully qualified name of a named type and the
// namespace its children inherit. A dotted name wins over everything; an
// explicit "namespace" attribute wins over the enclosing namespace.
func (p *schemaParser) qualifiedName(raw map[string]interface{}, enclosing, what string) (fullName, namespace string, err error) {
	name, ok := raw["name"].(string)
	if !ok || name == "" {
		return "", "", avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			`%s schema is missing "name"`, what)
	}

	if i := strings.LastIndex(name, "."); i >= 0 {
		return name, name[:i], nil
	}

	namespace = enclosing
	if ns, ok := raw["namespace"].(string); ok {
		namespace = ns
	}
	if namespace == "" {
		return name, "", nil
	}
	return namespace + "." + name, namespace, nil
}

func (p *schemaParser) register(t *Type) error {
	if _, exists := p.named[t.Name]; exists {
		return avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			"named type %q declared twice", t.Name).WithDetail("name", t.Name)
	}
	p.named[t.Name] = t
	return nil
}
