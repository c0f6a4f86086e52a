package commands

import (
	"fmt"
	"strconv"
	"strings"

	"steam-provider/internal/steam/resource"
	"steam-provider/internal/steam/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	reviewBlurb   string
	reviewUrl     string
	reviewVerdict string

	listBlurb     string
	listId        string
	listPublished bool
)

func init() {
	putReviewCmd.Flags().StringVar(&reviewBlurb, "blurb", "", "The text of the review.")
	putReviewCmd.Flags().StringVar(&reviewUrl, "url", "", "A link to a full review.")
	putReviewCmd.Flags().StringVar(&reviewVerdict, "verdict", "recommended", "One of recommended, not-recommended or informational.")

	putListCmd.Flags().StringVar(&listBlurb, "blurb", "", "The description of the list.")
	putListCmd.Flags().StringVar(&listId, "id", "", "Overwrites this list instead of creating one.")
	putListCmd.Flags().BoolVar(&listPublished, "publish", false, "Publishes the list.")

	curatorCmd.AddCommand(listsCmd, findListCmd, putListCmd, deleteListCmd, putReviewCmd, deleteReviewsCmd)
	rootCmd.AddCommand(curatorCmd)
}

func parseIds(args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%q is not an id: %w", arg, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func parseVerdict(verdict string) (resource.RecommendationState, error) {
	switch strings.ToLower(verdict) {
	case "recommended":
		return resource.Recommended, nil
	case "not-recommended":
		return resource.NotRecommended, nil
	case "informational":
		return resource.Informational, nil
	}
	return 0, fmt.Errorf("unknown verdict %q", verdict)
}

// curatorClient opens a store session and returns a resource client acting
// under it.
func curatorClient(cmd *cobra.Command) (resource.Client, error) {
	g := getGlobals(cmd.Context())
	s, err := openSession(cmd.Context(), g, session.Store)
	if err != nil {
		return resource.Client{}, err
	}
	return resource.NewClient(g.transport, g.tel).WithSession(s), nil
}

func printResult(res resource.Result) error {
	if !res.Success() {
		return fmt.Errorf("steam did not accept the request: %s", string(res.Body))
	}
	fmt.Println(string(res.Body))
	return nil
}

var curatorCmd = &cobra.Command{
	Use:   "curator",
	Short: "Manages the lists and reviews of a curator.",
}

var listsCmd = &cobra.Command{
	Use:   "lists <clanid>",
	Short: "Shows the lists of a curator.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIds(args)
		if err != nil {
			return err
		}
		client, err := curatorClient(cmd)
		if err != nil {
			return err
		}
		lists, err := client.CuratorLists(cmd.Context(), ids[0])
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Title", "Apps"})
		for _, list := range lists {
			t.AppendRow(table.Row{list.ListId, list.Title, len(list.AppIds)})
		}
		t.Render()
		return nil
	},
}

var findListCmd = &cobra.Command{
	Use:   "find-list <clanid> <title>",
	Short: "Finds the list of a curator whose title is closest to the one given.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIds(args[:1])
		if err != nil {
			return err
		}
		client, err := curatorClient(cmd)
		if err != nil {
			return err
		}
		lists, err := client.CuratorLists(cmd.Context(), ids[0])
		if err != nil {
			return err
		}
		list, found := resource.FindCuratorList(lists, args[1])
		if !found {
			return fmt.Errorf("no list resembles %q", args[1])
		}
		fmt.Printf("%s\t%s\n", list.ListId, list.Title)
		return nil
	},
}

var putListCmd = &cobra.Command{
	Use:   "put-list <clanid> <title> [appid...]",
	Short: "Creates or overwrites a curator list.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		clanIds, err := parseIds(args[:1])
		if err != nil {
			return err
		}
		appIds, err := parseIds(args[2:])
		if err != nil {
			return err
		}
		client, err := curatorClient(cmd)
		if err != nil {
			return err
		}
		res, err := client.Do(cmd.Context(), resource.PutCuratorList(clanIds[0], resource.CuratorListInput{
			ListId:    listId,
			Title:     args[1],
			Blurb:     listBlurb,
			AppIds:    appIds,
			Published: listPublished,
		}))
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var deleteListCmd = &cobra.Command{
	Use:   "delete-list <clanid> <listid>",
	Short: "Deletes a curator list.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIds(args[:1])
		if err != nil {
			return err
		}
		client, err := curatorClient(cmd)
		if err != nil {
			return err
		}
		res, err := client.Do(cmd.Context(), resource.DeleteCuratorList(ids[0], args[1]))
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var putReviewCmd = &cobra.Command{
	Use:   "put-review <clanid> <appid> --blurb <text> [--url <url>] [--verdict <verdict>]",
	Short: "Creates or overwrites the curator's review of an app.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIds(args)
		if err != nil {
			return err
		}
		verdict, err := parseVerdict(reviewVerdict)
		if err != nil {
			return err
		}
		client, err := curatorClient(cmd)
		if err != nil {
			return err
		}
		res, err := client.Do(cmd.Context(), resource.PutCuratorReview(ids[0], resource.CuratorReview{
			AppId:          ids[1],
			Blurb:          reviewBlurb,
			Url:            reviewUrl,
			Recommendation: verdict,
		}))
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var deleteReviewsCmd = &cobra.Command{
	Use:   "delete-reviews <clanid> <appid...>",
	Short: "Deletes the curator's reviews of the apps given.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIds(args)
		if err != nil {
			return err
		}
		client, err := curatorClient(cmd)
		if err != nil {
			return err
		}
		res, err := client.Do(cmd.Context(), resource.DeleteCuratorReviews(ids[0], ids[1:]))
		if err != nil {
			return err
		}
		return printResult(res)
	},
}
