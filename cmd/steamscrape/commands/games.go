package commands

import (
	"fmt"
	"sort"

	"steam-provider/internal/steam/resource"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(gamesCmd)
}

var gamesCmd = &cobra.Command{
	Use:   "games <steamid>",
	Short: "Lists the games on a public profile by playtime.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		client := resource.NewClient(g.transport, g.tel)
		games, err := client.UserGames(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		sort.SliceStable(games.Games, func(i, j int) bool {
			return games.Games[i].PlaytimeMinutes > games.Games[j].PlaytimeMinutes
		})

		fmt.Printf("%s owns %d games\n", games.PersonaName, len(games.Games))

		t := newTable()
		t.AppendHeader(table.Row{"App", "Name", "Hours", "Last played"})
		for _, game := range games.Games {
			lastPlayed := "-"
			if !game.LastPlayed.IsZero() {
				lastPlayed = game.LastPlayed.Format(dateLayout)
			}
			t.AppendRow(table.Row{
				game.AppId,
				game.Name,
				fmt.Sprintf("%.1f", float64(game.PlaytimeMinutes)/60),
				lastPlayed,
			})
		}
		t.Render()
		return nil
	},
}
