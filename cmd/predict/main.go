// Command predict posts a stroke-risk payload to a running service and prints
// the probabilities.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

type predictResponse struct {
	NoStroke float64 `json:"no_stroke_probability"`
	Stroke   float64 `json:"stroke_probability"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "http://localhost:8080", "service base URL")
	file := fs.String("file", "-", "payload file, - for stdin")
	wrap := fs.Bool("wrap", false, `nest the payload under "features"`)
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	body, err := readPayload(*file, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "read payload: %v\n", err)
		return 1
	}
	if *wrap {
		body, err = json.Marshal(map[string]json.RawMessage{"features": body})
		if err != nil {
			fmt.Fprintf(stderr, "wrap payload: %v\n", err)
			return 1
		}
	}

	client := resty.New().
		SetBaseURL(*addr).
		SetTimeout(*timeout)

	var result predictResponse
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post("/predict")
	if err != nil {
		fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if resp.StatusCode() != 200 {
		fmt.Fprintf(stderr, "service returned %d: %s\n", resp.StatusCode(), resp.String())
		return 1
	}

	fmt.Fprintf(stdout, "no_stroke_probability: %.4f\n", result.NoStroke)
	fmt.Fprintf(stdout, "stroke_probability:    %.4f\n", result.Stroke)
	return 0
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, errors.New("payload is not valid JSON")
	}
	return data, nil
}
