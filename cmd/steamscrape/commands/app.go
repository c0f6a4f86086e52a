package commands

import (
	"fmt"
	"strconv"
	"strings"

	"steam-provider/internal/steam/resource"
	"steam-provider/internal/steam/scrape"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(appCmd)
}

func formatCents(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func formatPrice(price *scrape.Price) string {
	switch {
	case price == nil:
		return "not for sale"
	case price.Free:
		return "free"
	case price.DiscountPercent > 0:
		return fmt.Sprintf("%s (-%d%% from %s)", formatCents(price.Final), price.DiscountPercent, formatCents(price.Original))
	}
	return formatCents(price.Final)
}

func formatRefs(refs []scrape.ProfileRef) string {
	var out []string
	for _, ref := range refs {
		switch {
		case ref.CuratorId != 0:
			out = append(out, fmt.Sprintf("%s (curator %d)", ref.Name, ref.CuratorId))
		case ref.Vanity != "":
			out = append(out, fmt.Sprintf("%s (%s)", ref.Name, ref.Vanity))
		default:
			out = append(out, ref.Name)
		}
	}
	return strings.Join(out, ", ")
}

var appCmd = &cobra.Command{
	Use:   "app <appid>",
	Short: "Shows what the store page of an app says about it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		appId, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("app id: %w", err)
		}

		client := resource.NewClient(g.transport, g.tel)
		details, err := client.AppDetails(cmd.Context(), appId)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendRow(table.Row{"App", details.AppId})
		t.AppendRow(table.Row{"Name", details.Name})
		typ := details.Type.String()
		if details.ParentAppId != 0 {
			typ = fmt.Sprintf("%s of %d", typ, details.ParentAppId)
		}
		t.AppendRow(table.Row{"Type", typ})
		if details.ReleaseDate != nil {
			t.AppendRow(table.Row{"Released", details.ReleaseDate.Format(dateLayout)})
		} else {
			t.AppendRow(table.Row{"Released", "-"})
		}
		t.AppendRow(table.Row{"Price", formatPrice(details.Price)})
		t.AppendRow(table.Row{"Genres", strings.Join(details.Genres, ", ")})

		var tags []string
		for _, tag := range details.Tags {
			tags = append(tags, tag.Name)
		}
		t.AppendRow(table.Row{"Tags", strings.Join(tags, ", ")})
		t.AppendRow(table.Row{"Languages", strings.Join(details.Languages, ", ")})

		var platforms []string
		if details.Platforms.Windows {
			platforms = append(platforms, "windows")
		}
		if details.Platforms.Mac {
			platforms = append(platforms, "mac")
		}
		if details.Platforms.Linux {
			platforms = append(platforms, "linux")
		}
		t.AppendRow(table.Row{"Platforms", strings.Join(platforms, ", ")})

		deck := "unknown"
		if details.DeckCompatibility != nil {
			deck = details.DeckCompatibility.String()
		}
		t.AppendRow(table.Row{"Steam Deck", deck})

		if details.ReviewScore != nil {
			t.AppendRow(table.Row{"Reviews", fmt.Sprintf("%d%% of %d", details.ReviewScore.Percent, details.ReviewScore.Total)})
		}
		t.AppendRow(table.Row{"Developers", formatRefs(details.Developers)})
		t.AppendRow(table.Row{"Publishers", formatRefs(details.Publishers)})
		t.Render()
		return nil
	},
}
