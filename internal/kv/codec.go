package kv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// EncodeSet serialises an id set as a JSON array.
//
// Ids are NFC-normalised, de-duplicated and sorted, so the same set always
// encodes to the same bytes regardless of insertion order. HTML characters
// are not escaped.
func EncodeSet(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = norm.NFC.String(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a []string cannot fail.
	_ = enc.Encode(out)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// DecodeSet parses a JSON array of ids. Null decodes to an empty set.
func DecodeSet(raw string) ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode id set: %w", err)
	}
	for i, id := range ids {
		ids[i] = norm.NFC.String(id)
	}
	return ids, nil
}
