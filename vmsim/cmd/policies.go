package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/spf13/cobra"
)

var policyDescriptions = map[replacement.Kind]string{
	replacement.KindOptimal: "evicts the page referenced furthest in the future",
	replacement.KindOptimalCountdown: "evicts the page whose last use " +
		"comes latest in the script",
	replacement.KindMRU: "evicts the front of the access ordered list, " +
		"a hit moves the page to the back",
	replacement.KindMRUBack:      "evicts the most recently used page",
	replacement.KindRandom:       "evicts a uniformly random slot",
	replacement.KindFIFO:         "evicts the oldest admitted page",
	replacement.KindSecondChance: "FIFO that spares pages with the reference bit set",
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the replacement policies.",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		printPolicies(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}

func printPolicies(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, k := range replacement.Kinds() {
		fmt.Fprintf(tw, "%s\t%s\n", k, policyDescriptions[k])
	}

	_ = tw.Flush()
}
