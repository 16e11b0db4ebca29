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
		Use:   "onboard [session-id]",
		Short: "Complete onboarding from a JSON payload on stdin",
		Long:  "Complete onboarding. Stdin carries {\"userProfile\": {...}, \"currentSelf\": {...}}.",
		Args:  cobra.ExactArgs(1),
		Run:   runOnboard,
	}

	RootCmd.AddCommand(cmd)
}

func runOnboard(cmd *cobra.Command, args []string) {
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var payload struct {
		Profile     *model.UserProfile `json:"userProfile"`
		CurrentSelf *model.Persona     `json:"currentSelf"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		exitErr("parse payload", err)
	}

	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := c.CompleteOnboarding(cmd.Context(), args[0], payload.Profile, payload.CurrentSelf)
	if err != nil {
		exitErr("onboard", err)
	}

	out, _ := json.MarshalIndent(sess, "", "  ")
	fmt.Println(string(out))
}
