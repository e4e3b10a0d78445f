package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// ErrUnseenLabel is returned for a value the encoder was not fitted on.
var ErrUnseenLabel = errors.New("previously unseen label")

// LabelEncoder maps a categorical value to its index in the sorted class list.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

type labelEncoderFile struct {
	Classes []string `json:"classes"`
}

func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, errors.New("label encoder has no classes")
	}
	if !sort.StringsAreSorted(classes) {
		return nil, fmt.Errorf("label encoder classes are not sorted: %q", classes)
	}
	enc := &LabelEncoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, class := range classes {
		key := norm.NFC.String(class)
		if _, dup := enc.index[key]; dup {
			return nil, fmt.Errorf("duplicate class %q", class)
		}
		enc.index[key] = i
	}
	return enc, nil
}

func (e *LabelEncoder) Transform(value string) (int, error) {
	code, ok := e.index[norm.NFC.String(value)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnseenLabel, value)
	}
	return code, nil
}

func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *LabelEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(labelEncoderFile{Classes: e.classes})
}

func (e *LabelEncoder) UnmarshalJSON(data []byte) error {
	var file labelEncoderFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	enc, err := NewLabelEncoder(file.Classes)
	if err != nil {
		return err
	}
	*e = *enc
	return nil
}

// LoadLabelEncoders reads a column -> encoder object.
func LoadLabelEncoders(path string) (map[string]*LabelEncoder, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	encoders := make(map[string]*LabelEncoder)
	if err := json.Unmarshal(payload, &encoders); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for column, enc := range encoders {
		if enc == nil {
			return nil, fmt.Errorf("%s: encoder for %q is null", path, column)
		}
	}
	return encoders, nil
}
