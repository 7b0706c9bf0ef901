// Command tribles is a small cobra-based CLI over the tribles module:
// it inserts facts from a JSON-lines file into a store, runs a single
// two-constant pattern query against one, and builds or inspects
// frozen archives.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/triblespace/tribles-go/internal/mathutil"
	"github.com/triblespace/tribles-go/tribles"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	var capacityHint string
	root := &cobra.Command{
		Use:   "tribles",
		Short: "Insert, query, and archive tribles stores",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts := tribles.Options{Debug: debug}
			if capacityHint != "" {
				entries, ok := mathutil.ParseUint64(capacityHint)
				if !ok {
					return fmt.Errorf("--cuckoo-capacity-hint: invalid integer %q", capacityHint)
				}
				// Size branch child tables for a 75% load factor at the
				// expected entry count instead of the default two slots.
				opts.CuckooStartCapacity = mathutil.CeilDiv(int(entries)*4, 3)
			}
			tribles.Configure(opts)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	root.PersistentFlags().StringVar(&capacityHint, "cuckoo-capacity-hint", "",
		"expected entries per branch, used to pre-size cuckoo child tables (decimal or 0x-hex)")
	root.AddCommand(newInsertCmd(), newQueryCmd(), newArchiveCmd())
	return root
}
