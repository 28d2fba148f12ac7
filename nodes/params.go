// Package nodes implements the four node contracts — classifier,
// extractor, action, clarification — that a graph author composes into
// an intent-routing DAG, plus the typed parameter schema extractor
// nodes fill and coerce.
package nodes

import (
	"fmt"
	"strconv"

	"github.com/dshills/intentrouter-go/dag"
)

// ParamType is one of the closed set of types a param_schema field may
// declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeFloat   ParamType = "float"
	TypeBoolean ParamType = "boolean"
	TypeList    ParamType = "list"
	TypeMap     ParamType = "map"
	TypeRecord  ParamType = "record"
)

// FieldSchema describes one param_schema entry. Fields is populated
// only when Type is TypeRecord, giving a nested schema resolved
// recursively the same way the top-level schema is.
type FieldSchema struct {
	Type   ParamType
	Fields map[string]FieldSchema
}

// ParamSchema is the param_schema extractor config: a field name to
// FieldSchema mapping.
type ParamSchema map[string]FieldSchema

// CoerceParams walks schema, coercing each field of raw to its
// declared type. raw is the parsed (but untyped) reply — a
// map[string]any produced by decoding the LLM's JSON/YAML output.
// The first coercion failure aborts with a *dag.TypeCoercionError.
func CoerceParams(schema ParamSchema, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(schema))
	for name, field := range schema {
		val, ok := raw[name]
		if !ok {
			out[name] = zeroValue(field.Type)
			continue
		}
		coerced, err := coerceField(name, field, val)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}
	return out, nil
}

func zeroValue(t ParamType) any {
	switch t {
	case TypeString:
		return ""
	case TypeInteger:
		return int64(0)
	case TypeFloat:
		return float64(0)
	case TypeBoolean:
		return false
	case TypeList:
		return []any{}
	case TypeMap, TypeRecord:
		return map[string]any{}
	default:
		return nil
	}
}

func coerceField(name string, field FieldSchema, val any) (any, error) {
	switch field.Type {
	case TypeString:
		return coerceString(name, val)
	case TypeInteger:
		return coerceInteger(name, val)
	case TypeFloat:
		return coerceFloat(name, val)
	case TypeBoolean:
		return coerceBoolean(name, val)
	case TypeList:
		return coerceList(name, val)
	case TypeMap:
		return coerceMap(name, val)
	case TypeRecord:
		return coerceRecord(name, field, val)
	default:
		return nil, &dag.TypeCoercionError{Field: name, Want: string(field.Type), Got: val, Reason: "unknown type in param_schema"}
	}
}

// unwrapSingleElementList accepts a single-element list where a scalar
// was declared (spec.md §9), a common LLM reply shape for fields the
// model answers as a one-item array. Lists of any other length, and
// non-list values, pass through unchanged.
func unwrapSingleElementList(val any) any {
	if list, ok := val.([]any); ok && len(list) == 1 {
		return list[0]
	}
	return val
}

func coerceString(name string, val any) (any, error) {
	val = unwrapSingleElementList(val)
	switch v := val.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func coerceInteger(name string, val any) (any, error) {
	val = unwrapSingleElementList(val)
	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return nil, &dag.TypeCoercionError{Field: name, Want: "integer", Got: val, Reason: "value has a fractional part"}
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &dag.TypeCoercionError{Field: name, Want: "integer", Got: val, Reason: "not a parseable integer"}
		}
		return n, nil
	default:
		return nil, &dag.TypeCoercionError{Field: name, Want: "integer", Got: val, Reason: "unsupported source type"}
	}
}

func coerceFloat(name string, val any) (any, error) {
	val = unwrapSingleElementList(val)
	switch v := val.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &dag.TypeCoercionError{Field: name, Want: "float", Got: val, Reason: "not a parseable float"}
		}
		return f, nil
	default:
		return nil, &dag.TypeCoercionError{Field: name, Want: "float", Got: val, Reason: "unsupported source type"}
	}
}

func coerceBoolean(name string, val any) (any, error) {
	val = unwrapSingleElementList(val)
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &dag.TypeCoercionError{Field: name, Want: "boolean", Got: val, Reason: "not a parseable boolean"}
		}
		return b, nil
	case float64:
		return v != 0, nil
	default:
		return nil, &dag.TypeCoercionError{Field: name, Want: "boolean", Got: val, Reason: "unsupported source type"}
	}
}

func coerceList(name string, val any) (any, error) {
	v, ok := val.([]any)
	if !ok {
		return nil, &dag.TypeCoercionError{Field: name, Want: "list", Got: val, Reason: "value is not a JSON array"}
	}
	return v, nil
}

func coerceMap(name string, val any) (any, error) {
	v, ok := val.(map[string]any)
	if !ok {
		return nil, &dag.TypeCoercionError{Field: name, Want: "map", Got: val, Reason: "value is not a JSON object"}
	}
	return v, nil
}

func coerceRecord(name string, field FieldSchema, val any) (any, error) {
	v, ok := val.(map[string]any)
	if !ok {
		return nil, &dag.TypeCoercionError{Field: name, Want: "record", Got: val, Reason: "value is not a JSON object"}
	}
	nested, err := CoerceParams(field.Fields, v)
	if err != nil {
		return nil, err
	}
	return nested, nil
}
