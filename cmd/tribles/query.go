package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/query"
	"github.com/triblespace/tribles-go/tribles/value"
)

func newQueryCmd() *cobra.Command {
	var e, a, v, vid, vs string
	cmd := &cobra.Command{
		Use:   "query <store>",
		Short: "Run a single (entity, attribute, value) pattern against a store, printing the unbound field",
		Long: "Exactly two of --e, --a, and one of --v/--vid/--vs must be given as constants;\n" +
			"the remaining field is the free variable whose matches are printed one per line, in hex.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storePath := args[0]
			set, err := loadSet(storePath)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			eTerm, eBound, err := idTerm(e)
			if err != nil {
				return fmt.Errorf("query: --e: %w", err)
			}
			aTerm, aBound, err := idTerm(a)
			if err != nil {
				return fmt.Errorf("query: --a: %w", err)
			}
			vTerm, vBound, err := valueTerm(v, vid, vs)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			bound := 0
			for _, b := range []bool{eBound, aBound, vBound} {
				if b {
					bound++
				}
			}
			if bound != 2 {
				return fmt.Errorf("query: exactly two of --e, --a, --v/--vid/--vs must be set")
			}

			const free query.VariableId = 0
			switch {
			case !eBound:
				eTerm = query.Var(free)
			case !aBound:
				aTerm = query.Var(free)
			default:
				vTerm = query.Var(free)
			}

			pattern := query.Pattern(set, eTerm, aTerm, vTerm)
			for b := range query.Find([]query.VariableId{free}, pattern) {
				val, _ := b.Get(free)
				fmt.Println(hex.EncodeToString(val[:]))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&e, "e", "", "entity id, 32 hex chars")
	cmd.Flags().StringVar(&a, "a", "", "attribute id, 32 hex chars")
	cmd.Flags().StringVar(&v, "v", "", "raw value, 64 hex chars")
	cmd.Flags().StringVar(&vid, "vid", "", "GenId value, 32 hex chars")
	cmd.Flags().StringVar(&vs, "vs", "", "short string value")
	return cmd
}

func idTerm(hexStr string) (query.Term, bool, error) {
	if hexStr == "" {
		return query.Term{}, false, nil
	}
	rawID, err := decodeRawId(hexStr)
	if err != nil {
		return query.Term{}, false, err
	}
	var val tribles.RawValue
	copy(val[16:], rawID[:])
	return query.Const(val), true, nil
}

func valueTerm(v, vid, vs string) (query.Term, bool, error) {
	set := 0
	for _, s := range []string{v, vid, vs} {
		if s != "" {
			set++
		}
	}
	if set == 0 {
		return query.Term{}, false, nil
	}
	if set > 1 {
		return query.Term{}, false, fmt.Errorf("at most one of --v, --vid, --vs may be set")
	}
	switch {
	case v != "":
		b, err := hex.DecodeString(v)
		if err != nil || len(b) != 32 {
			return query.Term{}, false, fmt.Errorf("--v must be 64 hex chars")
		}
		var val tribles.RawValue
		copy(val[:], b)
		return query.Const(val), true, nil
	case vid != "":
		id, err := decodeId(vid)
		if err != nil {
			return query.Term{}, false, fmt.Errorf("--vid: %w", err)
		}
		return query.Const(value.GenIdEncode(id)), true, nil
	default:
		val, err := value.ShortStringEncode(vs)
		if err != nil {
			return query.Term{}, false, err
		}
		return query.Const(val), true, nil
	}
}
