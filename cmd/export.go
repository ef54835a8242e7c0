package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swind/go-enigma/progress"
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "output directory, or a .zip/.jar file")
	viper.BindPFlag("export.output", exportCmd.Flags().Lookup("output"))
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <JAR> [MAPPINGS]",
	Short: "Export the deobfuscated sources of a jar",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := viper.GetString("export.output")
		if output == "" {
			return fmt.Errorf("no output: set --output or export.output")
		}

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
			report, err := c.ExportSource(ctx, output, bars)
			bars.Wait()
			if err != nil {
				return err
			}
			for _, failure := range report.Failed {
				log.WithError(failure).Warn("Skipped class")
			}
			log.WithFields(log.Fields{
				"written": len(report.Written),
				"failed":  len(report.Failed),
				"output":  output,
			}).Info("Exported")
			return nil
		})
	},
}
