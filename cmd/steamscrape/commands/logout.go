package commands

import (
	"fmt"

	"steam-provider/internal/components/db"
	"steam-provider/internal/steam"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(logoutCmd)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forgets every saved credential, the next command that needs a session logs in again.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g := getGlobals(ctx)

		err := db.InTx(ctx, g.database, func(tx *db.Queries) error {
			for _, domain := range []string{steam.StoreDomain, steam.CommunityDomain} {
				for _, name := range []string{steam.SecureLoginCookie, steam.StoreSessionCookie} {
					if err := tx.DeleteCredential(ctx, name, domain); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("forget credentials: %w", err)
		}
		fmt.Println("logged out")
		return nil
	},
}
