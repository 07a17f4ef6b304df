package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	errMissingData = errors.New("missing data")
	errBadPayload  = errors.New("unparseable command payload")
)

// Command is the structured payload of a write request. The body carries
// exactly one of a base64-wrapped binary map-pack document ("msgpack") or a
// textual JSON document ("json"); neither present is a request error.
type Command struct {
	data map[string]interface{}
}

// ParseCommand decodes the structured payload from the form variables.
func ParseCommand(form url.Values) (*Command, error) {
	if raw := form.Get("msgpack"); raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errBadPayload, err)
		}

		var data map[string]interface{}
		if err := msgpack.Unmarshal(decoded, &data); err != nil {
			return nil, fmt.Errorf("%w: %s", errBadPayload, err)
		}

		return &Command{data: data}, nil
	}

	if raw := form.Get("json"); raw != "" {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("%w: %s", errBadPayload, err)
		}

		return &Command{data: data}, nil
	}

	return nil, errMissingData
}

// HasKey reports whether the payload carries the key.
func (c *Command) HasKey(key string) bool {
	_, ok := c.data[key]
	return ok
}

// StringKey returns a string value, or the default when absent or not a
// string.
func (c *Command) StringKey(key, def string) string {
	if v, ok := c.data[key].(string); ok {
		return v
	}

	return def
}

// BoolKey returns a boolean value, or the default when absent or not a
// boolean.
func (c *Command) BoolKey(key string, def bool) bool {
	if v, ok := c.data[key].(bool); ok {
		return v
	}

	return def
}

// ArrayKey returns an array value and whether the key held one.
func (c *Command) ArrayKey(key string) ([]interface{}, bool) {
	v, ok := c.data[key].([]interface{})
	return v, ok
}
