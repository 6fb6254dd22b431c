package kvstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeError reports a stored value that could not be turned into a record.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Validator is implemented by records that check their required fields.
type Validator interface {
	Validate() error
}

// Decode turns a stored value into a typed record.
//
// raw may be a JSON object or a JSON string whose contents are a JSON
// object; both decode the same way. Records implementing Validator are
// validated. Every failure is a *DecodeError.
func Decode[T any](key string, raw []byte) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, &DecodeError{Key: key, Err: fmt.Errorf("empty value")}
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, &DecodeError{Key: key, Err: err}
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, &DecodeError{Key: key, Err: fmt.Errorf("value is not a JSON object")}
	}

	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	if val, ok := any(v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return nil, &DecodeError{Key: key, Err: err}
		}
	}
	return v, nil
}

// Encode serializes a record for storage.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b, nil
}

func decodeSet(key string, raw []byte) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, &DecodeError{Key: key, Err: err}
		}
		raw = []byte(inner)
	}
	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	return members, nil
}
