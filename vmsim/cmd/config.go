package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/spf13/cobra"
)

// envDefaults maps flags to the environment variables that override their
// defaults. Flags given on the command line win.
var envDefaults = map[string]string{
	"policy":       "VMSIM_POLICY",
	"seed":         "VMSIM_SEED",
	"frames":       "VMSIM_FRAMES",
	"port":         "VMSIM_MONITOR_PORT",
	"record":       "VMSIM_RECORD",
	"ch-host":      "VMSIM_CLICKHOUSE_HOST",
	"ch-port":      "VMSIM_CLICKHOUSE_PORT",
	"ch-database":  "VMSIM_CLICKHOUSE_DATABASE",
	"ch-user":      "VMSIM_CLICKHOUSE_USER",
	"ch-password":  "VMSIM_CLICKHOUSE_PASSWORD",
	"random-evict": "VMSIM_RANDOM_EVICT_ON_SWAP_IN",
}

func applyEnvDefaults(cmd *cobra.Command) error {
	for flag, env := range envDefaults {
		f := cmd.Flags().Lookup(flag)
		if f == nil || f.Changed {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}

		if err := cmd.Flags().Set(flag, value); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}

	return nil
}

// unitConfig holds the flags that shape a memory management unit.
type unitConfig struct {
	policy      string
	seed        int64
	frames      int
	randomEvict bool
}

func addUnitFlags(cmd *cobra.Command, cfg *unitConfig) {
	cmd.Flags().StringVarP(&cfg.policy, "policy", "p",
		string(replacement.KindFIFO), "replacement policy, see vmsim policies")
	cmd.Flags().Int64Var(&cfg.seed, "seed", 0,
		"seed of the random policy, 0 seeds from the clock")
	cmd.Flags().IntVar(&cfg.frames, "frames", vm.DefaultNumFrames,
		"number of physical frames")
	cmd.Flags().BoolVar(&cfg.randomEvict, "random-evict", false,
		"random policy places every swapped-in page in a random slot")
}

func (c unitConfig) kind() (replacement.Kind, error) {
	return replacement.ParseKind(c.policy)
}

func (c unitConfig) validate() error {
	if _, err := c.kind(); err != nil {
		return err
	}

	if c.frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", c.frames)
	}

	return nil
}

// resolveSeed draws the seed that a zero seed stands for, so that it can be
// recorded and reused.
func (c *unitConfig) resolveSeed() {
	if c.seed == 0 {
		c.seed = time.Now().UnixNano()
	}
}

func (c unitConfig) builder(kind replacement.Kind) mmu.Builder {
	return mmu.MakeBuilder().
		WithNumFrames(c.frames).
		WithPolicyKind(kind).
		WithSeed(c.seed).
		WithRandomEvictOnSwapIn(c.randomEvict)
}
