package main

import (
	"io"

	"github.com/aouyang1/go-costcast/frame"
	"github.com/aouyang1/go-costcast/source"
	"github.com/spf13/cobra"
)

type splitFlags struct {
	input    string
	columns  map[string]string
	cutoff   string
	trainOut string
	testOut  string
}

func newSplitCmd() *cobra.Command {
	f := &splitFlags{}
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a csv into training rows before the cutoff and held-out rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := frame.ParseTime(f.cutoff)
			if err != nil {
				return err
			}
			df, err := source.ReadFile(f.input)
			if err != nil {
				return err
			}
			df, err = frame.Normalize(df, f.columns)
			if err != nil {
				return err
			}
			train, test, err := frame.Split(df, cutoff)
			if err != nil {
				return err
			}
			if err := writeFile(f.trainOut, func(w io.Writer) error { return train.WriteCSV(w) }); err != nil {
				return err
			}
			return writeFile(f.testOut, func(w io.Writer) error { return test.WriteCSV(w) })
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.input, "input", "i", "", "input csv file")
	flags.StringToStringVar(&f.columns, "columns", nil, "source to target column renames such as Date=ds,Cost=y")
	flags.StringVar(&f.cutoff, "cutoff", "", "first held-out timestamp")
	flags.StringVar(&f.trainOut, "train-out", "train.csv", "training rows output")
	flags.StringVar(&f.testOut, "test-out", "test.csv", "held-out rows output")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("cutoff")
	return cmd
}
