package cmd

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/swind/go-enigma/entry"
)

func init() {
	rootCmd.AddCommand(renameCmd)

	renameCmd.Flags().StringP("output", "o", "", "mappings file to write (default is MAPPINGS)")
	renameCmd.Flags().Bool("remove", false, "remove the mapping of the entry")
	renameCmd.Flags().Bool("mark", false, "mark the entry as deobfuscated under its current name")
	renameCmd.MarkFlagsMutuallyExclusive("remove", "mark")
}

// renameCmd represents the rename command
var renameCmd = &cobra.Command{
	Use:   "rename <JAR> <MAPPINGS> <ENTRY> [NAME]",
	Short: "Rename an entry and save the mappings",
	Long: `Rename an entry and save the mappings.

ENTRY is a key in deobfuscated names, e.g. com/game/Player.health:I,
com/game/Player.tick()V or com/game/Player.tick(I)V#0:amount.`,
	Args: cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		remove, _ := cmd.Flags().GetBool("remove")
		mark, _ := cmd.Flags().GetBool("mark")

		if output == "" {
			output = args[1]
		}
		if !remove && !mark && len(args) < 4 {
			return fmt.Errorf("NAME is required to rename %s", args[2])
		}
		e, err := entry.ParseKey(args[2])
		if err != nil {
			return err
		}
		ref := entry.DeclarationReference(e)

		return interruptible(func(ctx context.Context) error {
			c, err := openWorkbench(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			defer c.CloseJar()

			switch {
			case remove:
				err = c.RemoveMapping(ctx, ref)
			case mark:
				err = c.MarkAsDeobfuscated(ctx, ref)
			default:
				err = c.Rename(ctx, ref, args[3])
			}
			if err != nil {
				return err
			}
			if !c.IsDirty() {
				log.Info("Nothing changed")
				return nil
			}
			if err := c.SaveMappings(output); err != nil {
				return err
			}
			log.WithFields(log.Fields{"entry": args[2], "mappings": output}).Info("Saved")
			return nil
		})
	},
}
