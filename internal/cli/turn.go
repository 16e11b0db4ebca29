package cli

import (
	"encoding/json"
	"fmt"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	turnCmd := &cobra.Command{
		Use:   "turn [session-id]",
		Short: "Record a conversation turn",
		Long:  "Record one user/assistant exchange. Key signals extracted from the user message are checkpointed on the active branch.",
		Args:  cobra.ExactArgs(1),
		Run:   runTurn,
	}
	turnCmd.Flags().String("self", "", "Persona id of the active self")
	turnCmd.Flags().StringP("user-text", "u", "", "User message (required)")
	turnCmd.Flags().StringP("assistant-text", "a", "", "Assistant message (required)")
	turnCmd.MarkFlagRequired("user-text")
	turnCmd.MarkFlagRequired("assistant-text")

	logCmd := &cobra.Command{
		Use:   "log [session-id]",
		Short: "Show the session transcript",
		Args:  cobra.ExactArgs(1),
		Run:   runLog,
	}
	logCmd.Flags().IntP("tail", "t", 0, "Only show the last N entries")

	RootCmd.AddCommand(turnCmd, logCmd)
}

func runTurn(cmd *cobra.Command, args []string) {
	selfID, _ := cmd.Flags().GetString("self")
	userText, _ := cmd.Flags().GetString("user-text")
	assistantText, _ := cmd.Flags().GetString("assistant-text")

	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	insights, err := c.RecordTurn(cmd.Context(), args[0], selfID, userText, assistantText)
	if err != nil {
		exitErr("turn", err)
	}

	b, _ := json.Marshal(map[string]any{"insights": insights})
	fmt.Println(string(b))
}

func runLog(cmd *cobra.Command, args []string) {
	tail, _ := cmd.Flags().GetInt("tail")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var entries []model.TranscriptEntry
	var err2 error
	if tail > 0 {
		entries, err2 = s.TailTranscript(cmd.Context(), args[0], tail)
	} else {
		entries, err2 = s.ListTranscript(cmd.Context(), args[0])
	}
	if err2 != nil {
		exitErr("log", err2)
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
