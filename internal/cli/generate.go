package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate [session-id]",
		Short: "Commit a persona batch under a parent",
		Long:  "Commit a persona batch. Stdin carries a JSON array of personas; each gets an exploration node and a memory branch, atomically.",
		Args:  cobra.ExactArgs(1),
		Run:   runGenerate,
	}

	cmd.Flags().StringP("parent", "p", "root", "Parent key: \"root\" or a persona id")

	RootCmd.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	parent, _ := cmd.Flags().GetString("parent")

	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var personas []*model.Persona
	if err := json.Unmarshal(b, &personas); err != nil {
		exitErr("parse personas", err)
	}
	if len(personas) == 0 {
		exitErr("generate", fmt.Errorf("stdin must carry a non-empty JSON array of personas"))
	}

	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	out, err := c.GeneratePersonas(cmd.Context(), args[0], parent, len(personas), personas)
	if err != nil {
		exitErr("generate", err)
	}

	enc, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(enc))
}
