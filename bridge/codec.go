package bridge

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Codec converts values to and from the wire format.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default Codec.
//
// Unmarshal never yields a partially filled value. Every struct field must
// be present in the JSON object unless it is a pointer, an interface, or
// tagged omitempty/omitzero. A null is accepted only where Go has a nil.
// Fields tagged `validate:"..."` are then checked with go-playground
// validator rules.
type JSONCodec struct {
	// Strict also rejects unknown object fields and trailing data.
	Strict bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c JSONCodec) Unmarshal(data []byte, v any) error {
	if err := c.decode(data, v); err != nil {
		return err
	}

	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Pointer {
		return errors.New("decode target must be a non-nil pointer")
	}
	if err := checkComplete(data, t.Elem(), ""); err != nil {
		return err
	}
	return validateStruct(v)
}

func (c JSONCodec) decode(data []byte, v any) error {
	if !c.Strict {
		return json.Unmarshal(data, v)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

var (
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// checkComplete reports a null where t has no nil value, or a required
// struct field missing from the object in data. Present fields are checked
// recursively; elements of arrays and maps are not.
func checkComplete(data []byte, t reflect.Type, path string) error {
	if isNull(data) {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			return nil
		}
		return fmt.Errorf("%s: null is not a valid %s", fieldName(path), t)
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || customDecoding(t) {
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for _, f := range jsonFields(t) {
		raw, ok := lookupKey(obj, f.name)
		if !ok {
			if f.optional {
				continue
			}
			return fmt.Errorf("missing field %q", path+f.name)
		}
		if err := checkComplete(raw, f.typ, path+f.name+"."); err != nil {
			return err
		}
	}
	return nil
}

type jsonField struct {
	name     string
	typ      reflect.Type
	optional bool
}

// jsonFields lists the object keys encoding/json would map onto t,
// flattening untagged embedded structs.
func jsonFields(t reflect.Type) []jsonField {
	var out []jsonField
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" {
			et := sf.Type
			viaPointer := et.Kind() == reflect.Pointer
			if viaPointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				for _, f := range jsonFields(et) {
					f.optional = f.optional || viaPointer
					out = append(out, f)
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		optional := sf.Type.Kind() == reflect.Pointer || sf.Type.Kind() == reflect.Interface
		for _, o := range strings.Split(opts, ",") {
			if o == "omitempty" || o == "omitzero" {
				optional = true
			}
		}
		out = append(out, jsonField{name: name, typ: sf.Type, optional: optional})
	}
	return out
}

// lookupKey matches keys the way encoding/json does: exact first, then
// case-insensitive.
func lookupKey(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if raw, ok := obj[name]; ok {
		return raw, true
	}
	for k, raw := range obj {
		if strings.EqualFold(k, name) {
			return raw, true
		}
	}
	return nil, false
}

func customDecoding(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonUnmarshalerType) || pt.Implements(textUnmarshalerType)
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func fieldName(path string) string {
	if path == "" {
		return "response"
	}
	return "field " + strings.TrimSuffix(path, ".")
}

func validateStruct(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(rv.Interface())
}
