package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// client is a thin HTTP client for a running QuoteFlow server.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) postJSON(path string, payload, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeInto(resp.Body, out)
}

func (c *client) getJSON(path string, out interface{}) (int, error) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeInto(resp.Body, out)
}

func decodeInto(r io.Reader, out interface{}) error {
	if out == nil {
		return nil
	}
	return json.NewDecoder(r).Decode(out)
}

// printJSON pretty-prints a response body to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// apiError extracts the server's error message from a decoded body.
func apiError(body map[string]interface{}, status int) error {
	if errObj, ok := body["error"].(map[string]interface{}); ok {
		if msg, ok := errObj["message"].(string); ok {
			return fmt.Errorf("server returned %d: %s", status, msg)
		}
	}
	return fmt.Errorf("server returned %d", status)
}
