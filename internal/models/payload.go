package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Payload is a JSON object stored in a jsonb column
type Payload map[string]interface{}

// Value encodes the payload as a JSON string, which both lib/pq and the
// simple protocol accept for jsonb
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a jsonb column
func (p *Payload) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into Payload", value)
	}
	return json.Unmarshal(raw, p)
}
