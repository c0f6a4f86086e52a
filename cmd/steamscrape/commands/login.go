package commands

import (
	"fmt"

	"steam-provider/internal/steam/session"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in with the username and password of the config and saves the secure login for later commands.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		s, err := login(cmd.Context(), g, session.Store)
		if err != nil {
			return err
		}
		payload, _ := s.Payload()
		fmt.Printf("logged in as %s (%s)\n", payload.AccountName, payload.SteamId)
		return nil
	},
}
