package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage sessions",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new interview session",
		Run:   runSessionStart,
	}
	startCmd.Flags().StringP("user", "u", "", "User name")

	showCmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show a session record",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionShow,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all sessions, newest first",
		Run:   runSessionList,
	}

	sessionCmd.AddCommand(startCmd, showCmd, listCmd)
	RootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := c.StartInterview(cmd.Context(), user)
	if err != nil {
		exitErr("session start", err)
	}

	b, _ := json.MarshalIndent(sess, "", "  ")
	fmt.Println(string(b))
}

func runSessionShow(cmd *cobra.Command, args []string) {
	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := c.GetSession(cmd.Context(), args[0])
	if err != nil {
		exitErr("session show", err)
	}

	b, _ := json.MarshalIndent(sess, "", "  ")
	fmt.Println(string(b))
}

func runSessionList(cmd *cobra.Command, args []string) {
	c, s, err := openCoordinator()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sessions, err := c.ListSessions(cmd.Context())
	if err != nil {
		exitErr("session list", err)
	}

	if formatFlag == "text" {
		for _, sess := range sessions {
			fmt.Printf("%s  %-12s  %s\n", sess.ID, sess.Status, sess.UserName)
		}
		return
	}
	b, _ := json.MarshalIndent(sessions, "", "  ")
	fmt.Println(string(b))
}
