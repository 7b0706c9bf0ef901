package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/id"
	"github.com/triblespace/tribles-go/tribles/value"
)

// decodeId parses a 32-character hex string into an Id, rejecting the
// nil id the way every other id constructor in this module does.
func decodeId(s string) (id.Id, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return id.Id{}, fmt.Errorf("not 16 hex bytes")
	}
	var raw [16]byte
	copy(raw[:], b)
	return id.New(raw)
}

// fact is one line of a facts file: an entity and attribute id in hex,
// plus exactly one of a raw 32-byte value (v), a GenId value (vid), or
// a short string value (vs).
type fact struct {
	E   string `json:"e"`
	A   string `json:"a"`
	V   string `json:"v,omitempty"`
	VID string `json:"vid,omitempty"`
	VS  string `json:"vs,omitempty"`
}

func (f fact) trible() (tribles.Trible, error) {
	e, err := decodeRawId(f.E)
	if err != nil {
		return tribles.Trible{}, fmt.Errorf("facts: entity %q: %w", f.E, err)
	}
	a, err := decodeRawId(f.A)
	if err != nil {
		return tribles.Trible{}, fmt.Errorf("facts: attribute %q: %w", f.A, err)
	}
	v, err := f.rawValue()
	if err != nil {
		return tribles.Trible{}, err
	}
	t, err := tribles.NewTrible(e, a, v)
	if err != nil {
		return tribles.Trible{}, fmt.Errorf("facts: %w", err)
	}
	return t, nil
}

func (f fact) rawValue() (tribles.RawValue, error) {
	set := 0
	for _, s := range []string{f.V, f.VID, f.VS} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return tribles.RawValue{}, fmt.Errorf("facts: exactly one of v/vid/vs must be set, got %d", set)
	}
	switch {
	case f.V != "":
		b, err := hex.DecodeString(f.V)
		if err != nil || len(b) != 32 {
			return tribles.RawValue{}, fmt.Errorf("facts: value %q is not 32 hex bytes", f.V)
		}
		var v tribles.RawValue
		copy(v[:], b)
		return v, nil
	case f.VID != "":
		id, err := decodeId(f.VID)
		if err != nil {
			return tribles.RawValue{}, fmt.Errorf("facts: vid %q: %w", f.VID, err)
		}
		return value.GenIdEncode(id), nil
	default:
		v, err := value.ShortStringEncode(f.VS)
		if err != nil {
			return tribles.RawValue{}, fmt.Errorf("facts: vs %q: %w", f.VS, err)
		}
		return v, nil
	}
}

func decodeRawId(s string) (tribles.RawId, error) {
	id, err := decodeId(s)
	if err != nil {
		return tribles.RawId{}, err
	}
	return tribles.NewRawId([16]byte(id))
}

// readFacts parses one JSON fact object per non-blank line.
func readFacts(r io.Reader) ([]tribles.Trible, error) {
	var out []tribles.Trible
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var f fact
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return nil, fmt.Errorf("facts: line %d: %w", line, err)
		}
		t, err := f.trible()
		if err != nil {
			return nil, fmt.Errorf("facts: line %d: %w", line, err)
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("facts: %w", err)
	}
	return out, nil
}
