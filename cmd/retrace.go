package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/retrace"
)

func init() {
	rootCmd.AddCommand(retraceCmd)

	retraceCmd.Flags().StringP("format", "f", "enigma", "mappings format: enigma or proguard")
	retraceCmd.Flags().StringP("jar", "j", "", "obfuscated jar, to resolve inherited members")
	retraceCmd.Flags().BoolP("all-class-names", "a", false, "also rename class names outside of frames")
	retraceCmd.Flags().Bool("signatures", false, "print method signatures")
}

func readMappings(path, format string) (*mapping.Store, error) {
	switch format {
	case "enigma":
		return mapping.ReadFile(path)
	case "proguard":
		in, err := openInput(path)
		if err != nil {
			return nil, err
		}
		defer in.Close()
		return retrace.ReadProGuard(in)
	default:
		return nil, fmt.Errorf("unknown mappings format %q", format)
	}
}

// retraceCmd represents the retrace command
var retraceCmd = &cobra.Command{
	Use:   "retrace <MAPPINGS> [TRACE]",
	Short: "Deobfuscate a Java stack trace",
	Long: `Deobfuscate a Java stack trace read from TRACE or stdin.

Inputs ending in .gz are decompressed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		jar, _ := cmd.Flags().GetString("jar")
		allClassNames, _ := cmd.Flags().GetBool("all-class-names")
		signatures, _ := cmd.Flags().GetBool("signatures")

		var opts []retrace.Option
		if allClassNames {
			opts = append(opts, retrace.WithAllClassNames())
		}
		if signatures {
			opts = append(opts, retrace.WithVerbose())
		}

		trace := "-"
		if len(args) > 1 {
			trace = args[1]
		}
		in, err := openInput(trace)
		if err != nil {
			return err
		}
		defer in.Close()

		if jar != "" && format == "enigma" {
			return interruptible(func(ctx context.Context) error {
				c, err := openWorkbench(ctx, jar, args[0])
				if err != nil {
					return err
				}
				defer c.CloseJar()
				return c.Retrace(in, os.Stdout, opts...)
			})
		}

		store, err := readMappings(args[0], format)
		if err != nil {
			return err
		}
		var x *jarindex.Index
		if jar != "" {
			if x, err = indexJar(jar); err != nil {
				return err
			}
		}
		return retrace.New(retrace.NewFrameRemapper(store, x), opts...).Retrace(in, os.Stdout)
	},
}

func indexJar(path string) (*jarindex.Index, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	var x *jarindex.Index
	err = interruptible(func(ctx context.Context) error {
		var berr error
		x, berr = jarindex.Build(ctx, a,
			jarindex.WithLogger(log.Log),
			jarindex.WithWorkers(viper.GetInt("workers")))
		return berr
	})
	return x, err
}
