package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/triblespace/tribles-go/internal/tlog"
)

func newInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <store> <facts.jsonl>",
		Short: "Insert facts from a JSON-lines file into a store, creating it if absent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storePath, factsPath := args[0], args[1]

			f, err := os.Open(factsPath)
			if err != nil {
				return fmt.Errorf("insert: %w", err)
			}
			defer f.Close()

			facts, err := readFacts(f)
			if err != nil {
				return fmt.Errorf("insert: %w", err)
			}

			set, err := loadSet(storePath)
			if err != nil {
				return fmt.Errorf("insert: %w", err)
			}
			for _, t := range facts {
				set.Insert(t)
			}

			if err := saveSet(storePath, set); err != nil {
				return fmt.Errorf("insert: %w", err)
			}
			tlog.Info("insert: wrote store", "path", storePath, "facts", len(facts), "total", set.Len())
			return nil
		},
	}
	return cmd
}
