package cmd

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("output", "o", "", "write the mappings without the broken records")
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <JAR> <MAPPINGS>",
	Short: "List the mappings that do not fit a jar",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		return interruptible(func(ctx context.Context) error {
			c := newController()
			if err := c.OpenJar(ctx, args[0], nil); err != nil {
				return err
			}
			defer c.CloseJar()

			report, err := c.OpenMappings(args[1])
			if err != nil {
				return err
			}
			for _, line := range report.Lines() {
				fmt.Println(line)
			}
			log.WithField("broken", report.Len()).Info("Checked")

			if output != "" {
				if err := c.SaveMappings(output); err != nil {
					return err
				}
				log.WithField("mappings", output).Info("Saved")
			}
			return nil
		})
	},
}
