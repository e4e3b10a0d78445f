package stroke

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{"gender":"Male","ever_married":"Yes","work_type":"Private","Residence_type":"Urban","smoking_status":"never smoked","age":67,"avg_glucose_level":228.69}`

func TestParsePayloadValid(t *testing.T) {
	payload, err := ParsePayload([]byte(validBody))
	require.NoError(t, err)
	assert.Equal(t, "Male", payload[Gender])
	assert.Equal(t, json.Number("228.69"), payload[AvgGlucoseLevel])
}

func TestParsePayloadUnwrapsFeatures(t *testing.T) {
	flat, err := ParsePayload([]byte(validBody))
	require.NoError(t, err)
	nested, err := ParsePayload([]byte(`{"features":` + validBody + `}`))
	require.NoError(t, err)
	assert.Equal(t, flat, nested)
}

func TestParsePayloadFeaturesNotObject(t *testing.T) {
	_, err := ParsePayload([]byte(`{"features":[1,2]}`))
	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, RequiredColumns(), missing.Fields)
}

func TestParsePayloadInvalid(t *testing.T) {
	for _, body := range []string{
		"",
		"   ",
		"{}",
		"null",
		"[]",
		`[{"gender":"Male"}]`,
		`"text"`,
		"42",
		"{not json",
		`{"gender":"Male"} trailing`,
	} {
		t.Run(body, func(t *testing.T) {
			_, err := ParsePayload([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestParsePayloadMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "numeric and categorical",
			body: `{"gender":"Male","ever_married":"Yes","work_type":"Private","Residence_type":"Urban"}`,
			want: []string{SmokingStatus, Age, AvgGlucoseLevel},
		},
		{
			name: "one field",
			body: `{"gender":"Male","ever_married":"Yes","work_type":"Private","Residence_type":"Urban","smoking_status":"smokes","age":"50"}`,
			want: []string{AvgGlucoseLevel},
		},
		{
			name: "empty nested features",
			body: `{"features":{}}`,
			want: RequiredColumns(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(tt.body))
			var missing *MissingFieldsError
			require.True(t, errors.As(err, &missing), "got %v", err)
			assert.Equal(t, tt.want, missing.Fields)
		})
	}
}

func TestParsePayloadNullCountsAsPresent(t *testing.T) {
	body := `{"gender":null,"ever_married":"Yes","work_type":"Private","Residence_type":"Urban","smoking_status":"smokes","age":1,"avg_glucose_level":2}`
	payload, err := ParsePayload([]byte(body))
	require.NoError(t, err)
	assert.Contains(t, payload, Gender)
}
