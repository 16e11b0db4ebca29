package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	branchesCmd := &cobra.Command{
		Use:   "branches [session-id]",
		Short: "List a session's memory branches",
		Args:  cobra.ExactArgs(1),
		Run:   runBranches,
	}

	selectCmd := &cobra.Command{
		Use:   "select [session-id] [persona-id]",
		Short: "Select a future self and check out its branch",
		Args:  cobra.ExactArgs(2),
		Run:   runSelect,
	}

	backtrackCmd := &cobra.Command{
		Use:   "backtrack [session-id] [branch]",
		Short: "Return to a previously visited branch",
		Args:  cobra.ExactArgs(2),
		Run:   runBacktrack,
	}

	RootCmd.AddCommand(branchesCmd, selectCmd, backtrackCmd)
}

func runBranches(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	branches, err := s.ListBranches(cmd.Context(), args[0])
	if err != nil {
		exitErr("branches", err)
	}

	if formatFlag == "text" {
		for _, br := range branches {
			fmt.Printf("%-24s  head=%s  parent=%s\n", br.Name, br.HeadNodeID, br.ParentBranch)
		}
		return
	}
	b, _ := json.MarshalIndent(branches, "", "  ")
	fmt.Println(string(b))
}

func runSelect(cmd *cobra.Command, args []string) {
	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rc, err := c.SelectPersona(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("select", err)
	}

	b, _ := json.MarshalIndent(rc, "", "  ")
	fmt.Println(string(b))
}

func runBacktrack(cmd *cobra.Command, args []string) {
	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rc, err := c.Backtrack(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("backtrack", err)
	}

	b, _ := json.MarshalIndent(rc, "", "  ")
	fmt.Println(string(b))
}
