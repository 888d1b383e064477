package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
// A non-empty Indent produces indented output.
type JSON struct {
	Indent string
}

// Marshal encodes the value to JSON.
func (c JSON) Marshal(v any) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec.
func (c JSON) Name() string {
	if c.Indent != "" {
		return "json-indent"
	}
	return "json"
}
