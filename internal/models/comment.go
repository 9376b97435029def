package models

import (
	"encoding/json"
	"strings"
)

// Older backend versions store free-form sub-answers inside the comment
// string between these markers as serialized JSON. Newer payloads carry a
// structured freeform_answers field instead. Encoding and decoding of the
// wire-compatible form live here and nowhere else.
const (
	freeformOpen  = "[[freeform]]"
	freeformClose = "[[/freeform]]"
)

// EncodeComment serializes a comment plus free-form answers into the
// marker-delimited wire form accepted by old backends.
func EncodeComment(comment string, answers map[string]string) string {
	if len(answers) == 0 {
		return comment
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return comment
	}
	return comment + freeformOpen + string(payload) + freeformClose
}

// DecodeComment splits a wire comment into its plain text and any embedded
// free-form answers. Comments without markers pass through unchanged.
func DecodeComment(wire string) (string, map[string]string) {
	start := strings.Index(wire, freeformOpen)
	if start < 0 {
		return wire, nil
	}
	end := strings.Index(wire[start:], freeformClose)
	if end < 0 {
		return wire, nil
	}
	raw := wire[start+len(freeformOpen) : start+end]
	var answers map[string]string
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return wire, nil
	}
	return wire[:start] + wire[start+end+len(freeformClose):], answers
}
