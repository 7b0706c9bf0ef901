package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/archive"
)

// loadSet reads the TribleSet archived at path, or an empty set if the
// file does not yet exist.
func loadSet(path string) (*tribles.TribleSet, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return tribles.NewTribleSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	a, err := archive.Open(f)
	if err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	set := tribles.NewTribleSet()
	a.Each(set.Insert)
	return set, nil
}

// saveSet archives set to path, overwriting any existing file.
func saveSet(path string, set *tribles.TribleSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	defer f.Close()

	a := archive.Build(set)
	if err := a.Save(f); err != nil {
		return fmt.Errorf("store: save %s: %w", path, err)
	}
	return nil
}
