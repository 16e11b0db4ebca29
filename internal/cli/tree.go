package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	treeCmd := &cobra.Command{
		Use:   "tree [session-id]",
		Short: "Show the full exploration tree",
		Args:  cobra.ExactArgs(1),
		Run:   runTree,
	}

	childrenCmd := &cobra.Command{
		Use:   "children [session-id] [parent-key]",
		Short: "List the personas generated under a parent",
		Args:  cobra.ExactArgs(2),
		Run:   runChildren,
	}

	RootCmd.AddCommand(treeCmd, childrenCmd)
}

func runTree(cmd *cobra.Command, args []string) {
	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	tv, err := c.GetTree(cmd.Context(), args[0])
	if err != nil {
		exitErr("tree", err)
	}

	b, _ := json.MarshalIndent(tv, "", "  ")
	fmt.Println(string(b))
}

func runChildren(cmd *cobra.Command, args []string) {
	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	children, err := c.GetChildren(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("children", err)
	}

	if formatFlag == "text" {
		for _, p := range children {
			fmt.Printf("%s  depth=%d  %s\n", p.ID, p.Depth, p.Name)
		}
		return
	}
	b, _ := json.MarshalIndent(children, "", "  ")
	fmt.Println(string(b))
}
