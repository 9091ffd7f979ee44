package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [file or library name]",
		Short: "Print the tables of a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, _, err := a.readDefinitions(args[0])
			if err != nil {
				return err
			}
			for _, g := range defs {
				fmt.Fprintln(a.out, renderDefinition(g))
			}
			return nil
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [file or library name...]",
		Short: "Check that definitions decode and re-encode to identical bytes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, arg := range args {
				defs, data, err := a.readDefinitions(arg)
				if err != nil {
					fmt.Fprintf(a.out, "%s %s: %v\n", errorStyle.Render("FAIL"), arg, err)
					failed++
					continue
				}
				again, err := a.codec().EncodeAll(defs...)
				if err != nil {
					fmt.Fprintf(a.out, "%s %s: %v\n", errorStyle.Render("FAIL"), arg, err)
					failed++
					continue
				}
				if !bytes.Equal(data, again) {
					fmt.Fprintf(a.out, "%s %s: re-encoding differs (%d vs %d bytes)\n",
						errorStyle.Render("FAIL"), arg, len(data), len(again))
					failed++
					continue
				}
				fmt.Fprintf(a.out, "%s %s (%d definitions)\n", successStyle.Render("OK"), arg, len(defs))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed verification", failed, len(args))
			}
			return nil
		},
	}
}
