package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage manual tags of items",
	}

	var category string
	add := &cobra.Command{
		Use:   "add ITEM_ID TAG",
		Short: "Attach a manual tag, later classification never removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, components, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			row, err := components.Tagger.AddManualTag(cmd.Context(), args[0], args[1], category)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tagged %s with %s/%s\n", row.ItemId, row.Tag.Category, row.Tag.Name)
			return nil
		},
	}
	add.Flags().StringVar(&category, "category", "", "tag category, topic by default")

	rm := &cobra.Command{
		Use:     "rm ITEM_ID TAG",
		Aliases: []string{"remove"},
		Short:   "Detach a manual tag",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, components, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := components.Tagger.RemoveManualTag(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no manual tag %s\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", args[1], args[0])
			return nil
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}
