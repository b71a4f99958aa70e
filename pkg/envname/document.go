package envname

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Entry is a single resolved environment variable. The JSON tags are part of
// the cache artifact format and must not change between writer and reader.
type Entry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DecodeDocument decodes a secret payload that holds a whole environment as a
// JSON object of name to scalar pairs. Decoding is all-or-nothing: a single
// invalid name or unsupported value shape fails the entire document and no
// partial entries are returned. Entries are produced in sorted key order so
// resolution stays deterministic for a given payload.
func DecodeDocument(raw []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "secret payload is not a JSON object")
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(doc))
	for _, k := range keys {
		name, err := Validate(k)
		if err != nil {
			return nil, err
		}
		value, err := CoerceScalar(doc[k])
		if err != nil {
			return nil, errors.Wrapf(err, "value for key %q", k)
		}
		entries = append(entries, Entry{Name: name, Value: value})
	}
	return entries, nil
}
