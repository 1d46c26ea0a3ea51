package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap is a helper type for JSONB fields
type JSONMap map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("jsonmap: unsupported scan type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, m)
}

// StringList is a helper type for JSONB string arrays
type StringList []string

// Value implements driver.Valuer for JSONB storage
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("stringlist: unsupported scan type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, l)
}
