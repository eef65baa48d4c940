// pkg/transform/transform.go
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/saturnines/msisdn-extractor/pkg/jsonvalue"
)

// Transformer rewrites one extracted value before it is written out
type Transformer interface {
	Transform(value jsonvalue.Value) (jsonvalue.Value, error)
}

// Func adapts a plain function to Transformer
type Func func(jsonvalue.Value) (jsonvalue.Value, error)

func (f Func) Transform(v jsonvalue.Value) (jsonvalue.Value, error) { return f(v) }

// Registry holds all available transformers by name
type Registry struct {
	transformers map[string]Transformer
	mu           sync.RWMutex
}

// NewRegistry creates a new transformer registry with defaults
func NewRegistry() *Registry {
	r := &Registry{
		transformers: make(map[string]Transformer),
	}

	r.Register("string", Func(toString))
	r.Register("int", Func(toInt))
	r.Register("float", Func(toFloat))
	r.Register("bool", Func(toBool))
	r.Register("upper", stringOp(strings.ToUpper))
	r.Register("lower", stringOp(strings.ToLower))
	r.Register("trim", stringOp(strings.TrimSpace))
	r.Register("join", Func(join))
	r.Register("first", Func(first))
	r.Register("json", Func(toJSON))

	return r
}

// Register adds a new transformer
func (r *Registry) Register(name string, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[name] = t
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transformers[name]
	return ok
}

// Get looks up a transformer by name
func (r *Registry) Get(name string) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transformers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform type: %s", name)
	}
	return t, nil
}

// Names lists registered transformers, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transformers))
	for n := range r.transformers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// toString renders any scalar as a string; null stays null
func toString(v jsonvalue.Value) (jsonvalue.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	return jsonvalue.StringValue(v.Text()), nil
}

func toInt(v jsonvalue.Value) (jsonvalue.Value, error) {
	switch v.Kind() {
	case jsonvalue.Null:
		return v, nil
	case jsonvalue.Number:
		n, _ := v.AsNumber()
		if i, err := n.Int64(); err == nil {
			return jsonvalue.NumberValue(json.Number(strconv.FormatInt(i, 10))), nil
		}
		f, err := n.Float64()
		if err != nil {
			return v, err
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return v, fmt.Errorf("%s is out of int range", n)
		}
		return jsonvalue.NumberValue(json.Number(strconv.FormatInt(int64(f), 10))), nil
	case jsonvalue.String:
		s, _ := v.AsString()
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return v, fmt.Errorf("cannot convert %q to int", s)
		}
		return jsonvalue.NumberValue(json.Number(strconv.FormatInt(i, 10))), nil
	case jsonvalue.Bool:
		if b, _ := v.AsBool(); b {
			return jsonvalue.NumberValue("1"), nil
		}
		return jsonvalue.NumberValue("0"), nil
	default:
		return v, fmt.Errorf("cannot convert %s to int", v.Kind())
	}
}

func toFloat(v jsonvalue.Value) (jsonvalue.Value, error) {
	switch v.Kind() {
	case jsonvalue.Null, jsonvalue.Number:
		return v, nil
	case jsonvalue.String:
		s, _ := v.AsString()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return v, fmt.Errorf("cannot convert %q to float", s)
		}
		return jsonvalue.NumberValue(json.Number(strconv.FormatFloat(f, 'f', -1, 64))), nil
	default:
		return v, fmt.Errorf("cannot convert %s to float", v.Kind())
	}
}

func toBool(v jsonvalue.Value) (jsonvalue.Value, error) {
	switch v.Kind() {
	case jsonvalue.Null, jsonvalue.Bool:
		return v, nil
	case jsonvalue.String:
		s, _ := v.AsString()
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return v, fmt.Errorf("cannot convert %q to bool", s)
		}
		return jsonvalue.BoolValue(b), nil
	case jsonvalue.Number:
		n, _ := v.AsNumber()
		f, err := n.Float64()
		if err != nil {
			return v, err
		}
		return jsonvalue.BoolValue(f != 0), nil
	default:
		return v, fmt.Errorf("cannot convert %s to bool", v.Kind())
	}
}

// stringOp applies fn to string values and rejects everything else but null
func stringOp(fn func(string) string) Transformer {
	return Func(func(v jsonvalue.Value) (jsonvalue.Value, error) {
		if v.IsNull() {
			return v, nil
		}
		s, ok := v.AsString()
		if !ok {
			return v, fmt.Errorf("string transform requires string input, got %s", v.Kind())
		}
		return jsonvalue.StringValue(fn(s)), nil
	})
}

// join flattens an array of scalars into a comma separated string
func join(v jsonvalue.Value) (jsonvalue.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	if v.Kind() != jsonvalue.Array {
		return v, fmt.Errorf("join transform requires array input, got %s", v.Kind())
	}

	elems := v.Elements()
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.Text()
	}
	return jsonvalue.StringValue(strings.Join(parts, ",")), nil
}

// first takes the first element of an array; an empty array becomes null
func first(v jsonvalue.Value) (jsonvalue.Value, error) {
	if v.Kind() != jsonvalue.Array {
		return v, nil
	}
	elems := v.Elements()
	if len(elems) == 0 {
		return jsonvalue.NullValue(), nil
	}
	return elems[0], nil
}

// toJSON turns any value into its compact JSON text
func toJSON(v jsonvalue.Value) (jsonvalue.Value, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return v, err
	}
	return jsonvalue.StringValue(string(b)), nil
}

// ChainTransform applies multiple transforms in sequence
type ChainTransform struct {
	transforms []Transformer
}

// NewChainTransform creates a transform that applies multiple transforms in order
func NewChainTransform(transforms ...Transformer) *ChainTransform {
	return &ChainTransform{transforms: transforms}
}

func (t *ChainTransform) Transform(value jsonvalue.Value) (jsonvalue.Value, error) {
	result := value
	for _, transform := range t.transforms {
		var err error
		result, err = transform.Transform(result)
		if err != nil {
			return value, err
		}
	}
	return result, nil
}

// Parse builds a transformer from a name or a '|' separated chain such as
// "first|trim".
func (r *Registry) Parse(expr string) (Transformer, error) {
	names := strings.Split(expr, "|")
	if len(names) == 1 {
		return r.Get(strings.TrimSpace(expr))
	}

	chain := make([]Transformer, 0, len(names))
	for _, n := range names {
		t, err := r.Get(strings.TrimSpace(n))
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return NewChainTransform(chain...), nil
}

// DefaultRegistry is the global transformer registry
var DefaultRegistry = NewRegistry()
