// Package cli implements the selftree CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mirrorwell/selftree/internal/session"
	"github.com/mirrorwell/selftree/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "selftree",
	Short: "Branching state store for future-self conversations",
	Long:  "Versioned memory and exploration trees per session. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SELFTREE_DB or ~/.selftree/selftree.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("SELFTREE_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".selftree", "selftree.db")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// openCoordinator opens the store and wraps it in a coordinator with
// default policy. CLI commands never call an external generator; persona
// batches come in via stdin.
func openCoordinator() (*session.Coordinator, *store.SQLiteStore, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return session.New(s, nil, session.DefaultOptions(), nil), s, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
