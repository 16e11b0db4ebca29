package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mirrorwell/selftree/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Dump a session as JSON",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Rebuild a session from an export on stdin",
		Run:   runImport,
	}

	RootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exp, err := s.ExportSession(cmd.Context(), args[0])
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(exp, "", "  ")
	fmt.Println(string(b))
}

func runImport(cmd *cobra.Command, args []string) {
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var exp store.SessionExport
	if err := json.Unmarshal(b, &exp); err != nil {
		exitErr("parse export", err)
	}
	if exp.Session == nil {
		exitErr("import", fmt.Errorf("export has no session record"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.ImportSession(cmd.Context(), &exp); err != nil {
		exitErr("import", err)
	}

	fmt.Printf("imported session %s (%d nodes, %d branches, %d transcript entries)\n",
		exp.Session.ID, len(exp.Memory)+len(exp.Exploration), len(exp.Branches), len(exp.Transcript))
}
