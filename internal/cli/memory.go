package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint [session-id]",
		Short: "Commit facts and notes to a branch",
		Args:  cobra.ExactArgs(1),
		Run:   runCheckpoint,
	}
	checkpointCmd.Flags().StringP("branch", "b", "", "Branch name (required)")
	checkpointCmd.Flags().StringArray("fact", nil, "Fact to commit (repeatable)")
	checkpointCmd.Flags().StringArray("note", nil, "Note to commit (repeatable)")
	checkpointCmd.MarkFlagRequired("branch")

	resolveCmd := &cobra.Command{
		Use:   "resolve [session-id] [branch]",
		Short: "Resolve a branch's root-to-head context",
		Args:  cobra.ExactArgs(2),
		Run:   runResolve,
	}

	RootCmd.AddCommand(checkpointCmd, resolveCmd)
}

func runCheckpoint(cmd *cobra.Command, args []string) {
	branch, _ := cmd.Flags().GetString("branch")
	facts, _ := cmd.Flags().GetStringArray("fact")
	notes, _ := cmd.Flags().GetStringArray("note")

	if len(facts) == 0 && len(notes) == 0 {
		exitErr("checkpoint", fmt.Errorf("at least one --fact or --note is required"))
	}

	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	node, err := c.CheckpointMemory(cmd.Context(), args[0], branch, facts, notes)
	if err != nil {
		exitErr("checkpoint", err)
	}

	b, _ := json.MarshalIndent(node, "", "  ")
	fmt.Println(string(b))
}

func runResolve(cmd *cobra.Command, args []string) {
	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rc, err := c.ResolveMemory(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("resolve", err)
	}

	b, _ := json.MarshalIndent(rc, "", "  ")
	fmt.Println(string(b))
}
