package main

import (
	"github.com/aouyang1/go-costcast/materials"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newChangesCmd() *cobra.Command {
	var dir string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Print the monthly, quarterly, semi-annual and annual changes of every material",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := materials.LoadDir(dir)
			if err != nil {
				return err
			}
			if !asJSON {
				return catalog.TablePrint(cmd.OutOrStdout())
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(catalog.List())
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "data", "directory of material csv files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print json instead of a table")
	return cmd
}
