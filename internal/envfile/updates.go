package envfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Update is a single key/value assignment.
type Update struct {
	Key   string
	Value string
}

// Updates is an ordered list of assignments. It unmarshals from a flat
// JSON object, preserving the document order of its members, which a
// plain map would lose. Scalar values are coerced to their text form:
// numbers and booleans as written, null as the empty string.
type Updates []Update

// UnmarshalJSON decodes a flat JSON object into ordered updates. Nested
// objects and arrays are rejected.
func (u *Updates) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("updates: payload must be a JSON object")
	}

	out := Updates{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("updates: malformed object key")
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		var value string
		switch v := valTok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			if v {
				value = "true"
			} else {
				value = "false"
			}
		case nil:
			value = ""
		default:
			return fmt.Errorf("updates: value for %q must be a scalar", key)
		}
		out = append(out, Update{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*u = out
	return nil
}

// Keys lists the update keys in order.
func (u Updates) Keys() []string {
	keys := make([]string, len(u))
	for i, up := range u {
		keys[i] = up.Key
	}
	return keys
}
