package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/convert"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/metrics"
	"github.com/swind/go-enigma/progress"
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("output", "o", "", "converted mappings file")
	convertCmd.Flags().String("matches-dir", "", "directory of the match files (default is next to MAPPINGS)")
	convertCmd.Flags().Bool("recompute", false, "compute the matches even when match files exist")
	convertCmd.MarkFlagRequired("output")
	viper.BindPFlag("convert.matches-dir", convertCmd.Flags().Lookup("matches-dir"))
}

func matchFiles(mappings string) convert.Files {
	if dir := viper.GetString("convert.matches-dir"); dir != "" {
		return convert.FilesFor(filepath.Join(dir, filepath.Base(mappings)))
	}
	return convert.FilesFor(mappings)
}

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <SRC_JAR> <DEST_JAR> <MAPPINGS>",
	Short: "Move the mappings of a jar onto another version of it",
	Long: `Move the mappings of a jar onto another version of it.

The class, field and method matches are read from the match files of
MAPPINGS when they exist, or computed and written there. Edit them to fix
ambiguous or unmatched entries and run convert again.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		recompute, _ := cmd.Flags().GetBool("recompute")

		store, err := mapping.ReadFile(args[2])
		if err != nil {
			return err
		}

		srcJar, err := archive.Open(args[0])
		if err != nil {
			return err
		}
		defer srcJar.Close()
		dstJar, err := archive.Open(args[1])
		if err != nil {
			return err
		}
		defer dstJar.Close()

		return interruptible(func(ctx context.Context) error {
			src, dst, err := convert.BuildIndices(ctx, srcJar, dstJar,
				jarindex.WithLogger(log.Log),
				jarindex.WithWorkers(viper.GetInt("workers")))
			if err != nil {
				return err
			}

			files := matchFiles(args[2])
			tables, err := files.Read()
			if recompute || errors.Is(err, fs.ErrNotExist) {
				tables = convert.Compute(src, dst, store)
				if err := files.Write(tables); err != nil {
					return err
				}
				log.WithField("matches", files.Classes).Info("Wrote match files")
			} else if err != nil {
				return err
			}
			matched, ambiguous, unmatched := tables.Classes.Counts()
			log.WithFields(log.Fields{
				"matched":   matched,
				"ambiguous": ambiguous,
				"unmatched": unmatched,
			}).Info("Class matches")

			bars := progress.NewBars(os.Stderr)
			result, err := convert.Convert(ctx, src, dst, store, tables,
				convert.WithLogger(log.Log),
				convert.WithProgress(bars))
			bars.Wait()
			if err != nil {
				return err
			}
			for _, w := range result.Warnings() {
				log.Warn(w)
			}
			metrics.ObserveConversion(result.Unmatched.Len(), result.Broken.Len())

			if err := mapping.WriteFile(output, result.Store); err != nil {
				return err
			}
			log.WithField("mappings", output).Info("Saved")
			return nil
		})
	},
}
