package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/synthgraph/pkg/library"
	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
)

func newCompileCmd(a *app) *cobra.Command {
	var (
		output string
		store  bool
	)

	cmd := &cobra.Command{
		Use:   "compile [description...]",
		Short: "Compile YAML or HCL graph descriptions",
		Long: `Compiles each description into a synth definition. By default every
definition is written to <name>.scsyndef in the current directory. With -o all
definitions are bundled into one file; with --store they are saved in the
library instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs := make([]*synthdef.CompiledGraph, 0, len(args))
			for _, path := range args {
				g, err := a.compileFile(path)
				if err != nil {
					return err
				}
				graphs = append(graphs, g)
			}

			switch {
			case store:
				lib, err := a.library()
				if err != nil {
					return err
				}
				for _, g := range graphs {
					path, err := lib.Save(g)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "%s %s\n", successStyle.Render("stored"), path)
				}

			case output != "":
				data, err := a.codec().EncodeAll(graphs...)
				if err != nil {
					return err
				}
				if err := writeFile(output, data); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s %s (%d definitions, %d bytes)\n",
					successStyle.Render("wrote"), output, len(graphs), len(data))

			default:
				for _, g := range graphs {
					if err := library.ValidateName(g.Name); err != nil {
						return err
					}
					data, err := a.codec().Encode(g)
					if err != nil {
						return err
					}
					path := g.Name + library.Extension
					if err := writeFile(path, data); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "%s %s (%d bytes)\n", successStyle.Render("wrote"), path, len(data))
				}
			}

			a.logger.Info("compiled descriptions", logging.Count(len(graphs)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write all definitions to this file")
	cmd.Flags().BoolVar(&store, "store", false, "Save definitions in the library")
	return cmd
}
