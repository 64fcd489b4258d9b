package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/replay"
	"github.com/sarchlab/vmsim/mem/vm/trace"
	"github.com/spf13/cobra"
)

// A comparison is the outcome of replaying a script with one policy.
type comparison struct {
	Kind       replacement.Kind
	Accounting mmu.Accounting
	Errors     int
}

var (
	compareConfig   unitConfig
	comparePolicies string
)

var compareCmd = &cobra.Command{
	Use:   "compare SCRIPT",
	Short: "Replay a script with opt and other policies and compare the clocks.",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		kinds, err := compareKinds(compareConfig.policy, comparePolicies)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		if err := compareConfig.validate(); err != nil {
			log.Fatalf("Error: %v", err)
		}

		script := mustLoadScript(args[0])
		compareConfig.resolveSeed()

		rows := compare(script.Commands, kinds, compareConfig)
		printComparison(os.Stdout, rows)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addUnitFlags(compareCmd, &compareConfig)
	compareCmd.Flags().StringVar(&comparePolicies, "policies", "",
		"comma separated policies to compare, overrides --policy")
}

// compareKinds always puts opt first, followed by the requested policies.
func compareKinds(policy, policies string) ([]replacement.Kind, error) {
	names := []string{policy}
	if policies != "" {
		names = strings.Split(policies, ",")
	}

	kinds := []replacement.Kind{replacement.KindOptimal}
	seen := map[replacement.Kind]bool{replacement.KindOptimal: true}

	for _, name := range names {
		k, err := replacement.ParseKind(name)
		if err != nil {
			return nil, err
		}

		if seen[k] {
			continue
		}

		seen[k] = true
		kinds = append(kinds, k)
	}

	return kinds, nil
}

func compare(
	cmds []trace.Command,
	kinds []replacement.Kind,
	cfg unitConfig,
) []comparison {
	rows := make([]comparison, 0, len(kinds))

	for _, k := range kinds {
		unit := cfg.builder(k).Build("MMU")

		r := replay.NewReplayer(unit)
		r.Load(cmds)
		errs := r.Run()

		rows = append(rows, comparison{
			Kind:       k,
			Accounting: unit.Accounting(),
			Errors:     len(errs),
		})
	}

	return rows
}

func printComparison(w io.Writer, rows []comparison) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw,
		"POLICY\tCLOCK\tTHRASHING\tHITS\tFAULTS\tEVICTIONS\tSWAP-INS\tHIT RATIO\tERRORS")

	for _, r := range rows {
		a := r.Accounting
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.3f\t%d\n",
			r.Kind, a.Clock, a.ThrashingTime, a.Hits, a.Faults,
			a.Evictions, a.SwapIns, a.HitRatio(), r.Errors)
	}

	_ = tw.Flush()
}

func mustLoadScript(path string) *trace.Script {
	script, err := trace.ParseFile(path)
	if err != nil {
		log.Fatalf("Error reading %s: %v", path, err)
	}

	for _, e := range script.Malformed {
		log.Printf("Skipping %v", e)
	}

	return script
}
