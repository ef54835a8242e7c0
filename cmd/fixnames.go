package cmd

import (
	"context"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/swind/go-enigma/progress"
)

func init() {
	rootCmd.AddCommand(fixnamesCmd)

	fixnamesCmd.Flags().StringP("output", "o", "", "mappings file to write")
	fixnamesCmd.MarkFlagRequired("output")
}

// fixnamesCmd represents the fixnames command
var fixnamesCmd = &cobra.Command{
	Use:   "fixnames <JAR> [MAPPINGS]",
	Short: "Give default names to the obfuscated fields and classes of a jar",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		var mappings string
		if len(args) > 1 {
			mappings = args[1]
		}

		return interruptible(func(ctx context.Context) error {
			c, err := openWorkbench(ctx, args[0], mappings)
			if err != nil {
				return err
			}
			defer c.CloseJar()

			bars := progress.NewBars(os.Stderr)
			n, err := c.FixNames(ctx, bars)
			bars.Wait()
			if err != nil {
				return err
			}
			if err := c.SaveMappings(output); err != nil {
				return err
			}
			log.WithFields(log.Fields{"renamed": n, "mappings": output}).Info("Saved")
			return nil
		})
	},
}
