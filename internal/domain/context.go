package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind identifies the scalar type held by a Value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindText
	KindInteger
	KindBool
	KindReal
)

// Value is a small closed variant over the scalar types a conversation
// context may hold. The zero Value is absent.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	b    bool
	f    float64
}

func Text(s string) Value    { return Value{kind: KindText, s: s} }
func Integer(i int64) Value  { return Value{kind: KindInteger, i: i} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Real(f float64) Value   { return Value{kind: KindReal, f: f} }
func Absent() Value          { return Value{} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsAbsent() bool  { return v.kind == KindAbsent }

// Text returns the textual form of the value. Non-text kinds are
// stringified; absent yields "".
func (v Value) Text() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindReal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

// Int returns the integer form of the value and whether the conversion
// is meaningful. Reals truncate; numeric text parses.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.i, true
	case KindReal:
		return int64(v.f), true
	case KindText:
		if n, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(v.s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindReal:
		return v.f, true
	case KindInteger:
		return float64(v.i), true
	case KindText:
		if f, err := strconv.ParseFloat(v.s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func (v Value) Bool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindText:
		if b, err := strconv.ParseBool(v.s); err == nil {
			return b, true
		}
	case KindInteger:
		return v.i != 0, true
	}
	return false, false
}

// Equal reports scalar equality across kinds: numeric kinds compare by
// value, everything else by textual form.
func (v Value) Equal(other Value) bool {
	if v.kind == KindAbsent || other.kind == KindAbsent {
		return v.kind == other.kind
	}
	if vf, ok := v.Float(); ok {
		if of, ok2 := other.Float(); ok2 {
			return vf == of
		}
	}
	return v.Text() == other.Text()
}

// ConversationContext is an ordered mapping from key to scalar Value.
// It is owned by the calling conversation; the engine only adds keys or
// refreshes them with newer lookup data, never deletes.
type ConversationContext struct {
	keys   []string
	values map[string]Value
}

func NewContext() *ConversationContext {
	return &ConversationContext{values: make(map[string]Value)}
}

// Set stores a value under key, appending the key to the iteration
// order on first use.
func (c *ConversationContext) Set(key string, v Value) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = v
}

// SetIfAbsent stores a value only when the key is missing or currently
// absent. Returns whether the value was stored.
func (c *ConversationContext) SetIfAbsent(key string, v Value) bool {
	if cur, ok := c.values[key]; ok && !cur.IsAbsent() {
		return false
	}
	c.Set(key, v)
	return true
}

// Get returns the value for key, or an absent Value.
func (c *ConversationContext) Get(key string) Value {
	if c == nil {
		return Absent()
	}
	return c.values[key]
}

func (c *ConversationContext) Has(key string) bool {
	if c == nil {
		return false
	}
	v, ok := c.values[key]
	return ok && !v.IsAbsent()
}

// Keys returns keys in insertion order.
func (c *ConversationContext) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *ConversationContext) Len() int { return len(c.keys) }

func (c *ConversationContext) Clone() *ConversationContext {
	out := NewContext()
	for _, k := range c.keys {
		out.Set(k, c.values[k])
	}
	return out
}

// MarshalJSON renders the context as a flat JSON object.
func (c *ConversationContext) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		v := c.values[k]
		switch v.kind {
		case KindText:
			m[k] = v.s
		case KindInteger:
			m[k] = v.i
		case KindBool:
			m[k] = v.b
		case KindReal:
			m[k] = v.f
		default:
			m[k] = nil
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts a flat JSON object of scalars. Nested values
// are rejected.
func (c *ConversationContext) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if c.values == nil {
		c.values = make(map[string]Value)
	}
	for k, raw := range m {
		v, err := valueFromAny(raw)
		if err != nil {
			return fmt.Errorf("context key %q: %w", k, err)
		}
		c.Set(k, v)
	}
	return nil
}

func valueFromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Absent(), nil
	case string:
		return Text(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		if t == float64(int64(t)) {
			return Integer(int64(t)), nil
		}
		return Real(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Integer(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Absent(), err
		}
		return Real(f), nil
	default:
		return Absent(), fmt.Errorf("unsupported value type %T", raw)
	}
}
