package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valksor/go-taktwerk/internal/engine"
	"github.com/valksor/go-taktwerk/internal/flow"
	"github.com/valksor/go-taktwerk/internal/log"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

var runCmd = &cobra.Command{
	Use:   "run [event.json]",
	Short: "Handle one tracker event",
	Long: `Run decodes a tracker event payload (file argument or stdin), reads
the work item fresh, runs the workflow machine to a terminal state, and
verifies the tracker reached the predicted state. When a run asks for
immediate re-invocation the follow-up runs in the same process.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trig, err := decodeTrigger(args)
		if err != nil {
			return err
		}

		store, err := buildStore(cfg)
		if err != nil {
			return err
		}
		inv, err := buildAgent(cfg)
		if err != nil {
			return err
		}

		deps := flow.Deps{Store: store, Agent: inv, WorkDir: cfg.Agent.WorkDir}
		opts := machineOptions(cfg)

		// A retriggering terminal hands straight into the next run; the
		// transition budget bounds the chain.
		for hops := 0; ; hops++ {
			if hops >= opts.MaxRetries+8 {
				return fmt.Errorf("retrigger chain did not settle after %d runs", hops)
			}

			rep, err := runOnce(cmd, deps, trig, opts)
			if err != nil {
				return err
			}
			printReport(cmd, rep)
			if rep.Failed() {
				return fmt.Errorf("run stopped early: %s", rep.StopReason)
			}

			next, ok := flow.NextTrigger(rep, trig)
			if !ok {
				return nil
			}
			log.Info("retriggering", "item", next.ItemNumber, "after", string(rep.FinalState))
			trig = next
		}
	},
}

func runOnce(cmd *cobra.Command, deps flow.Deps, trig trigger.Trigger, opts flow.Options) (*engine.Report, error) {
	m, err := flow.NewMachine(deps, trig, opts)
	if err != nil {
		return nil, err
	}
	c, err := flow.BuildContext(cmd.Context(), deps.Store, trig, opts.RunSettings())
	if err != nil {
		return nil, err
	}
	return m.Run(cmd.Context(), c)
}

func printReport(cmd *cobra.Command, rep *engine.Report) {
	if quiet {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "final state: %s (%s)\n", rep.FinalState, rep.Outcome)
	for _, r := range rep.Results {
		status := "ok"
		switch {
		case r.Skipped:
			status = "skipped"
		case r.Err != nil && r.Soft:
			status = fmt.Sprintf("soft error: %v", r.Err)
		case r.Err != nil:
			status = fmt.Sprintf("error: %v", r.Err)
		}
		fmt.Fprintf(out, "  %-24s %s\n", r.Action.Type, status)
	}
	for _, b := range rep.Batches {
		if !b.Matched {
			fmt.Fprintf(out, "  batch %d: verification mismatch (%d diffs)\n", b.Index, len(b.Diffs))
			for _, d := range b.Diffs {
				fmt.Fprintf(out, "    %s\n", d)
			}
		}
	}
	if rep.ShouldRetrigger {
		fmt.Fprintln(out, "  retrigger requested")
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
