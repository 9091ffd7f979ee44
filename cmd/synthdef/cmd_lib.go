package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLibCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lib",
		Short: "Manage the definition library",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			entries, err := lib.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, dimStyle.Render("library is empty"))
				return nil
			}
			for _, e := range entries {
				kind := "plain"
				if e.Compressed {
					kind = "snappy"
				}
				fmt.Fprintf(a.out, "%-32s %8d %s\n", e.Name, e.Size, dimStyle.Render(kind))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [name...]",
		Short: "Delete stored definitions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := lib.Delete(name); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s %s\n", successStyle.Render("deleted"), name)
			}
			return nil
		},
	})

	return cmd
}
