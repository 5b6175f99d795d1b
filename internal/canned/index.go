// Package canned holds the curated trigger → reply table consulted before
// the LLM provider.
package canned

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ent0n29/frontdesk/internal/fuzzy"
)

// ErrSourceMissing reports that the answer file does not exist. Callers may
// continue with an empty table.
var ErrSourceMissing = errors.New("canned answer source missing")

// LoadError reports an unreadable or malformed answer file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load canned answers %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Index is an immutable table of normalized triggers and their replies.
type Index struct {
	keys    []string
	replies map[string]string
	cutoff  float64
}

// Empty returns a table with no triggers.
func Empty() *Index {
	return &Index{replies: map[string]string{}, cutoff: fuzzy.DefaultCutoff}
}

// Normalize lowercases and trims a trigger or query.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Load reads a JSON or YAML mapping of trigger phrase to reply.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	var pairs []Pair
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		pairs, err = parseYAML(data)
	default:
		pairs, err = parseJSON(data)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	idx, err := FromPairs(pairs)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return idx, nil
}

// Pair is one trigger phrase and its fixed reply.
type Pair struct {
	Trigger string
	Reply   string
}

// FromPairs builds an index preserving pair order. Triggers that collide after
// normalization are rejected.
func FromPairs(pairs []Pair) (*Index, error) {
	idx := Empty()
	for _, p := range pairs {
		key := Normalize(p.Trigger)
		if key == "" {
			return nil, errors.New("empty trigger")
		}
		if _, dup := idx.replies[key]; dup {
			return nil, fmt.Errorf("duplicate trigger %q", key)
		}
		idx.keys = append(idx.keys, key)
		idx.replies[key] = p.Reply
	}
	return idx, nil
}

// FromMap builds an index from a map; trigger order is sorted for determinism.
func FromMap(m map[string]string) (*Index, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{Trigger: k, Reply: m[k]})
	}
	return FromPairs(pairs)
}

// Keys returns the normalized triggers in source order.
func (x *Index) Keys() []string {
	return append([]string(nil), x.keys...)
}

// Len returns the number of triggers.
func (x *Index) Len() int { return len(x.keys) }

// Get returns the reply for an exact normalized trigger.
func (x *Index) Get(trigger string) (string, bool) {
	reply, ok := x.replies[trigger]
	return reply, ok
}

// Lookup returns the best matching trigger and its reply for query.
func (x *Index) Lookup(query string) (trigger, reply string, ok bool) {
	if len(x.keys) == 0 {
		return "", "", false
	}
	trigger, ok = fuzzy.Best(Normalize(query), x.keys, x.cutoff)
	if !ok {
		return "", "", false
	}
	reply, ok = x.replies[trigger]
	return trigger, reply, ok
}

func parseJSON(data []byte) ([]Pair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object of trigger to reply")
	}

	var out []Pair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var reply string
		if err := dec.Decode(&reply); err != nil {
			return nil, fmt.Errorf("reply for %q: %w", key, err)
		}
		out = append(out, Pair{Trigger: key, Reply: reply})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return out, nil
}

func parseYAML(data []byte) ([]Pair, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("expected a YAML mapping of trigger to reply")
	}

	out := make([]Pair, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: trigger and reply must be plain strings", k.Line)
		}
		out = append(out, Pair{Trigger: k.Value, Reply: v.Value})
	}
	return out, nil
}
