package frontmatter

import (
	"slices"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindList
	// KindRaw holds any other YAML shape (nested maps, mixed lists, floats,
	// timestamps, null) as YAML text so it survives a rewrite untouched.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindRaw:
		return "raw"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single front matter value: string, integer, boolean, list of
// strings, or an opaque raw YAML value.
type Value struct {
	kind Kind
	str  string
	num  int64
	flag bool
	list []string
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(n int64) Value     { return Value{kind: KindInt, num: n} }
func Bool(b bool) Value     { return Value{kind: KindBool, flag: b} }

// List returns a list value; the items are copied.
func List(items ...string) Value {
	return Value{kind: KindList, list: append([]string{}, items...)}
}

// Raw wraps YAML text for a value that is not one of the typed variants.
func Raw(yamlText string) Value {
	return Value{kind: KindRaw, str: strings.TrimRight(yamlText, "\n")}
}

func (v Value) Kind() Kind { return v.kind }

// AsString returns the string held by a KindString value.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsInt returns the integer held by a KindInt value.
func (v Value) AsInt() (int64, bool) {
	return v.num, v.kind == KindInt
}

// AsBool returns the boolean held by a KindBool value.
func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// AsList returns a copy of the items held by a KindList value.
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string{}, v.list...), true
}

// RawYAML returns the YAML text of a KindRaw value.
func (v Value) RawYAML() (string, bool) {
	return v.str, v.kind == KindRaw
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.num == other.num
	case KindBool:
		return v.flag == other.flag
	case KindList:
		return slices.Equal(v.list, other.list)
	default:
		return v.str == other.str
	}
}

// GoString renders the value for test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case KindInt:
		return "Int(" + strconv.FormatInt(v.num, 10) + ")"
	case KindBool:
		return "Bool(" + strconv.FormatBool(v.flag) + ")"
	case KindList:
		return "List(" + strings.Join(v.list, ", ") + ")"
	case KindRaw:
		return "Raw(" + strconv.Quote(v.str) + ")"
	default:
		return "String(" + strconv.Quote(v.str) + ")"
	}
}

// FrontMatter is an ordered mapping of unique keys to values. The zero value
// is an empty mapping ready to use.
type FrontMatter struct {
	keys   []string
	values map[string]Value
}

// Len returns the number of keys.
func (fm *FrontMatter) Len() int { return len(fm.keys) }

// Keys returns the keys in source order.
func (fm *FrontMatter) Keys() []string { return append([]string{}, fm.keys...) }

// Get returns the value stored under key.
func (fm *FrontMatter) Get(key string) (Value, bool) {
	v, ok := fm.values[key]
	return v, ok
}

// Has reports whether key is present.
func (fm *FrontMatter) Has(key string) bool {
	_, ok := fm.values[key]
	return ok
}

// Set stores value under key. A new key is appended; an existing key keeps its position.
func (fm *FrontMatter) Set(key string, value Value) {
	if fm.values == nil {
		fm.values = make(map[string]Value)
	}
	if _, exists := fm.values[key]; !exists {
		fm.keys = append(fm.keys, key)
	}
	fm.values[key] = value
}

// Delete removes key, keeping the order of the remaining keys.
func (fm *FrontMatter) Delete(key string) {
	if _, ok := fm.values[key]; !ok {
		return
	}
	delete(fm.values, key)
	fm.keys = slices.DeleteFunc(fm.keys, func(k string) bool { return k == key })
}

// Clone returns an independent copy.
func (fm *FrontMatter) Clone() FrontMatter {
	out := FrontMatter{}
	for _, k := range fm.keys {
		v := fm.values[k]
		if v.kind == KindList {
			v.list = append([]string{}, v.list...)
		}
		out.Set(k, v)
	}
	return out
}

// Equal reports whether both mappings hold the same keys, in the same order,
// with equal values.
func (fm *FrontMatter) Equal(other FrontMatter) bool {
	if !slices.Equal(fm.keys, other.keys) {
		return false
	}
	for _, k := range fm.keys {
		if !fm.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}
