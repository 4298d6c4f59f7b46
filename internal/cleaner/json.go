package cleaner

import (
	"bytes"
	"encoding/json"
)

// variantConstructor builds one concrete grammar node from its tagged
// JSON payload ("null" for a zero-arg variant invoked as {"Name": null}
// or the bare-string shorthand).
type variantConstructor[T any] func(payload json.RawMessage) (T, error)

// decodeVariant implements the three-shape contract every grammar enum
// accepts (spec.md §6): a bare string (zero-arg variant, or — via
// bareFallback — a named commons reference), `{"Variant": payload}`, or
// `{"Variant": {fields...}}`. Unknown tags and multi-key objects are
// rejected, matching "unknown fields are rejected" / "exactly one tag
// key".
func decodeVariant[T any](data []byte, tagged map[string]variantConstructor[T], bareFallback func(name string) (T, bool)) (T, error) {
	var zero T

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if ctor, ok := tagged[name]; ok {
			return ctor(json.RawMessage("null"))
		}
		if bareFallback != nil {
			if v, ok := bareFallback(name); ok {
				return v, nil
			}
		}
		return zero, newErr(KindLookup, "unknown bare variant %q", name)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return zero, newErr(KindParse, "variant must be a string or a single-key object: %v", err)
	}
	if len(obj) != 1 {
		return zero, newErr(KindParse, "tagged variant object must have exactly one key, got %d", len(obj))
	}
	for tag, payload := range obj {
		ctor, ok := tagged[tag]
		if !ok {
			return zero, newErr(KindLookup, "unknown variant tag %q", tag)
		}
		return ctor(payload)
	}
	return zero, newErr(KindParse, "empty variant object")
}

// decodeField unmarshals a required struct field out of a tagged
// variant's payload, rejecting unknown fields the way spec.md §6
// requires for the whole grammar.
func decodeField[F any](payload json.RawMessage, out *F) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return newErr(KindParse, "invalid variant payload: %v", err)
	}
	return nil
}
