package domain

import (
	"reflect"
	"sort"
	"strings"
)

// TimestampKey is the bag key carrying the gathering time.
const TimestampKey = "timestamp"

// Bag is a read-only snapshot of capability payloads collected for one request.
// The zero value is an empty bag.
type Bag struct {
	data map[string]any
}

// NewBag copies data into a new bag. Later changes to data are not visible.
func NewBag(data map[string]any) Bag {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return Bag{data: cp}
}

// Has reports whether the capability key is present, whatever its payload.
func (b Bag) Has(c Capability) bool {
	_, ok := b.data[string(c)]
	return ok
}

// Get returns the payload for c and whether it was gathered.
func (b Bag) Get(c Capability) (any, bool) {
	v, ok := b.data[string(c)]
	return v, ok
}

// Truthy reports whether the capability is present with a non-empty payload.
func (b Bag) Truthy(c Capability) bool {
	v, ok := b.data[string(c)]
	return ok && IsTruthy(v)
}

// Timestamp returns the timestamp payload as stored, or "" when the key is absent.
func (b Bag) Timestamp() any {
	v, ok := b.data[TimestampKey]
	if !ok {
		return ""
	}
	return v
}

// Len counts bag keys, timestamp included.
func (b Bag) Len() int { return len(b.data) }

// Keys returns the bag keys in lexical order.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field reads a named field from a capability payload. Maps with string
// (or interface) keys are indexed by name; structs match an exported field
// case-insensitively, so "results" finds Results. Pointers are followed.
func (b Bag) Field(c Capability, field string) (any, bool) {
	v, ok := b.data[string(c)]
	if !ok || v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		kt := rv.Type().Key()
		var key reflect.Value
		switch kt.Kind() {
		case reflect.String:
			key = reflect.ValueOf(field).Convert(kt)
		case reflect.Interface:
			key = reflect.ValueOf(field)
		default:
			return nil, false
		}
		val := rv.MapIndex(key)
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.IsExported() && strings.EqualFold(sf.Name, field) {
				return rv.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}

// IsTruthy mirrors the usual falsy rules: nil, false, zero numbers,
// empty strings and empty collections are false.
func IsTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
