package domain

import (
	"bytes"
	"encoding/json"
)

// Usage is the flat token accounting for one invocation.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// TokenCount decodes a token field reported either as a bare number or as an
// object with a "total" member. Absent, null or unrecognized values are zero.
type TokenCount int

// UnmarshalJSON implements json.Unmarshaler.
func (c *TokenCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = 0
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var nested struct {
			Total *float64 `json:"total"`
		}
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil
		}
		if nested.Total != nil {
			*c = TokenCount(*nested.Total)
		}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = TokenCount(n)
	}
	return nil
}

// Int returns the count as an int.
func (c TokenCount) Int() int { return int(c) }
