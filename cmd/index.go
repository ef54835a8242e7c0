package cmd

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().BoolP("list", "l", false, "list the top-level classes")
}

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <JAR> [MAPPINGS]",
	Short: "Index a jar and summarize its classes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, _ := cmd.Flags().GetBool("list")

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

			x, err := c.Index()
			if err != nil {
				return err
			}
			obf, deobf, err := c.SeparatedClasses()
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"classes":      x.Len(),
				"obfuscated":   len(obf),
				"deobfuscated": len(deobf),
			}).Info("Indexed")

			if list {
				for _, cls := range obf {
					fmt.Println(cls.ExternalName())
				}
				for _, cls := range deobf {
					fmt.Println(cls.ExternalName())
				}
			}
			return nil
		})
	},
}
