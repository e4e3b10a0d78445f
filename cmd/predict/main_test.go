package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"gender":"Female","ever_married":"No","work_type":"children","Residence_type":"Rural","smoking_status":"Unknown","age":5,"avg_glucose_level":90}`

func TestRunPrintsProbabilities(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &received))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"no_stroke_probability":0.9666,"stroke_probability":0.0334}`)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"-addr", srv.URL, "-wrap"}, strings.NewReader(payload), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "no_stroke_probability: 0.9666")
	assert.Contains(t, stdout.String(), "stroke_probability:    0.0334")
	assert.Contains(t, received, "features")
}

func TestRunReportsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"error":"Missing fields in payload","missing_fields":["age"]}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gender":"Male"}`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-addr", srv.URL, "-file", path}, nil, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "422")
	assert.Contains(t, stderr.String(), "missing_fields")
	assert.Empty(t, stdout.String())
}

func TestRunRejectsInvalidJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-addr", "http://127.0.0.1:1"}, strings.NewReader("{oops"), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "not valid JSON")
}
