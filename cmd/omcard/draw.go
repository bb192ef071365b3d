package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/play"
)

func drawCmd(opts *options) *cobra.Command {
	var exclude []int
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw one card from the server",
		Long: `Draw one card and print it as JSON.

--style accepts every deck here, including classic and saga.
--exclude lists deck IDs to leave out of classic and saga draws.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			style, err := domain.ParseDeckStyle(opts.style)
			if err != nil {
				return err
			}
			card, err := opts.backend().Draw(cmd.Context(), play.DrawRequest{
				Provider:   opts.provider,
				DeckStyle:  style,
				ExcludeIDs: exclude,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(card)
		},
	}
	cmd.Flags().IntSliceVar(&exclude, "exclude", nil, "deck IDs to exclude")
	return cmd
}
