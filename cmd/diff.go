package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swind/go-enigma/mapping"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff <MAPPINGS> <MAPPINGS>",
	Short: "Unified diff of two mappings files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mapping.ReadFile(args[0])
		if err != nil {
			return err
		}
		b, err := mapping.ReadFile(args[1])
		if err != nil {
			return err
		}
		out, err := mapping.Diff(a, b, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}
