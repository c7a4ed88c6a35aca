package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valksor/go-taktwerk/internal/agent"
	"github.com/valksor/go-taktwerk/internal/flow"
)

var planCmd = &cobra.Command{
	Use:   "plan [event.json]",
	Short: "Show the decision and action plan without side effects",
	Long: `Plan decodes a tracker event, reads the work item, and runs the
workflow machine in predict-only mode: it prints the terminal state, the
ordered action list, and the predicted outcome per batch. Nothing is
executed and nothing is written.`,
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
		opts := machineOptions(cfg)

		// Planning never invokes the agent.
		deps := flow.Deps{Store: store, Agent: agent.Nop{}}

		m, err := flow.NewMachine(deps, trig, opts)
		if err != nil {
			return err
		}
		c, err := flow.BuildContext(cmd.Context(), store, trig, opts.RunSettings())
		if err != nil {
			return err
		}
		rep, err := m.Plan(c)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "would end in: %s\n", rep.FinalState)
		if len(rep.Planned) == 0 {
			fmt.Fprintln(out, "no actions")
		}
		for i, a := range rep.Planned {
			fmt.Fprintf(out, "  %2d. %s\n", i+1, a.Type)
		}
		for _, b := range rep.Batches {
			fmt.Fprintf(out, "batch %d: %d predicted outcome(s)\n", b.Index, len(b.Expected.Candidates))
		}
		if rep.ShouldRetrigger {
			fmt.Fprintln(out, "would request immediate retrigger")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
