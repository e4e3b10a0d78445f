package stroke

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Payload is a decoded request object. Numbers are kept as json.Number.
type Payload map[string]any

// ParsePayload decodes body, unwraps a nested "features" object and checks
// that every required column is present.
func ParsePayload(body []byte) (Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrInvalidPayload
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidPayload)
	}

	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, ErrInvalidPayload
	}
	if nested, ok := obj["features"].(map[string]any); ok {
		obj = nested
	}

	if missing := missingColumns(obj); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}
	return Payload(obj), nil
}

func missingColumns(obj map[string]any) []string {
	var missing []string
	for _, column := range RequiredColumns() {
		if _, ok := obj[column]; !ok {
			missing = append(missing, column)
		}
	}
	return missing
}
