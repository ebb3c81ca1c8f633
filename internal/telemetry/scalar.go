// Package telemetry implements the live telemetry data model: scalar
// values, rolling sample graphs, and labeled structure trees, organized
// into tabs inside a recursively tiled store. The types in this package
// are not safe for concurrent use; all mutation happens on a single
// owner goroutine (see internal/service), which is how thread safety is
// achieved without fine-grained locking.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ScalarKind identifies the concrete type held by a Scalar.
type ScalarKind int

const (
	KindInt ScalarKind = iota
	KindFloat
	KindBool
	KindText
)

func (k ScalarKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Scalar is a tagged union of the four publishable value types.
// The zero value is the integer 0. Scalars are immutable; updating a
// key overwrites the previous Scalar wholesale, so there is no implicit
// numeric coercion between writes. Last write wins, type included.
type Scalar struct {
	kind ScalarKind
	i    int64
	f    float64
	b    bool
	s    string
}

// Int returns a Scalar holding an int64.
func Int(v int64) Scalar { return Scalar{kind: KindInt, i: v} }

// Float returns a Scalar holding a float64.
func Float(v float64) Scalar { return Scalar{kind: KindFloat, f: v} }

// Bool returns a Scalar holding a bool.
func Bool(v bool) Scalar { return Scalar{kind: KindBool, b: v} }

// Text returns a Scalar holding a string.
func Text(v string) Scalar { return Scalar{kind: KindText, s: v} }

// Kind returns the kind tag of the scalar.
func (s Scalar) Kind() ScalarKind { return s.kind }

// IntValue returns the held integer and whether the scalar is an int.
func (s Scalar) IntValue() (int64, bool) { return s.i, s.kind == KindInt }

// FloatValue returns the held float and whether the scalar is a float.
func (s Scalar) FloatValue() (float64, bool) { return s.f, s.kind == KindFloat }

// BoolValue returns the held bool and whether the scalar is a bool.
func (s Scalar) BoolValue() (bool, bool) { return s.b, s.kind == KindBool }

// TextValue returns the held string and whether the scalar is text.
func (s Scalar) TextValue() (string, bool) { return s.s, s.kind == KindText }

// Equal reports whether two scalars hold the same kind and value.
func (s Scalar) Equal(o Scalar) bool { return s == o }

// String renders the scalar for display. Floats use three decimal
// places, matching the renderer's fixed precision.
func (s Scalar) String() string {
	switch s.kind {
	case KindInt:
		return strconv.FormatInt(s.i, 10)
	case KindFloat:
		return strconv.FormatFloat(s.f, 'f', 3, 64)
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindText:
		return s.s
	default:
		return ""
	}
}

// scalarJSON is the wire shape used by snapshots and the web UI.
type scalarJSON struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// MarshalJSON encodes the scalar as {"type": ..., "value": ...}.
func (s Scalar) MarshalJSON() ([]byte, error) {
	out := scalarJSON{Type: s.kind.String()}
	switch s.kind {
	case KindInt:
		out.Value = s.i
	case KindFloat:
		out.Value = s.f
	case KindBool:
		out.Value = s.b
	case KindText:
		out.Value = s.s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the {"type": ..., "value": ...} shape. Numeric
// values for "int" accept both JSON numbers and strings to survive
// 64-bit round trips through lossy JSON encoders.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw scalarJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case "int":
		switch v := raw.Value.(type) {
		case float64:
			*s = Int(int64(v))
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int scalar %q: %w", v, err)
			}
			*s = Int(n)
		default:
			return fmt.Errorf("invalid int scalar value %T", raw.Value)
		}
	case "float":
		v, ok := raw.Value.(float64)
		if !ok {
			return fmt.Errorf("invalid float scalar value %T", raw.Value)
		}
		*s = Float(v)
	case "bool":
		v, ok := raw.Value.(bool)
		if !ok {
			return fmt.Errorf("invalid bool scalar value %T", raw.Value)
		}
		*s = Bool(v)
	case "text":
		v, ok := raw.Value.(string)
		if !ok {
			return fmt.Errorf("invalid text scalar value %T", raw.Value)
		}
		*s = Text(v)
	default:
		return fmt.Errorf("unknown scalar type %q", raw.Type)
	}
	return nil
}
