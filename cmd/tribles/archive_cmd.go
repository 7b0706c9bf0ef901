package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/triblespace/tribles-go/internal/tlog"
	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/archive"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Build or inspect frozen archives",
	}
	cmd.AddCommand(newArchiveBuildCmd(), newArchiveInspectCmd())
	return cmd
}

func newArchiveBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <facts.jsonl> <out.archive>",
		Short: "Build a frozen archive directly from a facts file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			factsPath, outPath := args[0], args[1]

			f, err := os.Open(factsPath)
			if err != nil {
				return fmt.Errorf("archive build: %w", err)
			}
			defer f.Close()

			facts, err := readFacts(f)
			if err != nil {
				return fmt.Errorf("archive build: %w", err)
			}

			set := tribles.NewTribleSet()
			for _, t := range facts {
				set.Insert(t)
			}

			if err := saveSet(outPath, set); err != nil {
				return fmt.Errorf("archive build: %w", err)
			}
			tlog.Info("archive build: wrote archive", "path", outPath, "tribles", set.Len())
			return nil
		},
	}
}

func newArchiveInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Print the trible count of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("archive inspect: %w", err)
			}
			defer f.Close()

			a, err := archive.Open(f)
			if err != nil {
				return fmt.Errorf("archive inspect: %w", err)
			}
			fmt.Printf("tribles: %d\n", a.Len())
			return nil
		},
	}
}
