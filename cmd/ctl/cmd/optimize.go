package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpfielding/pngs.go/pkg/compress/deflate"
	"github.com/jpfielding/pngs.go/pkg/optimize"
	"github.com/jpfielding/pngs.go/pkg/png"
)

// NewOptimizeCmd creates the optimize cobra command
func NewOptimizeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize a PNG file",
		Long:  "Re-encodes a PNG through pixel-format reductions, per-row filter selection and IDAT recompression, keeping the smallest valid result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, _ := cmd.Flags().GetString("in")
			outPath, _ := cmd.Flags().GetString("out")
			if inPath == "" && len(args) > 0 {
				inPath = args[0]
			}
			if inPath == "" {
				return fmt.Errorf("input path is required. Use --in flag or provide as argument")
			}
			if outPath == "" {
				outPath = inPath
			}

			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			var input []byte
			if inPath == "-" {
				input, err = io.ReadAll(os.Stdin)
			} else {
				input, err = os.ReadFile(inPath)
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			output, err := optimize.Optimize(ctx, input, opts)
			if err != nil {
				return fmt.Errorf("optimize error: %w", err)
			}

			if outPath == "-" {
				_, err = os.Stdout.Write(output)
			} else {
				err = os.WriteFile(outPath, output, 0o644)
			}
			if err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("in", "i", "", "input PNG path, or - for stdin")
	pf.StringP("out", "o", "", "output PNG path, or - for stdout (default: overwrite input)")
	pf.Uint8P("preset", "p", 2, "optimization preset (0-6)")
	pf.Bool("force", false, "write output even when not smaller")
	pf.Bool("fix", false, "downgrade CRC errors to warnings")
	pf.Bool("alpha", false, "allow transparent pixel bytes to be altered for compression")
	pf.Bool("scale16", false, "forcibly scale 16-bit images down to 8-bit")
	pf.Bool("keep-interlace", false, "keep the input's interlacing instead of deinterlacing")
	pf.String("strip", "none", "chunk strip policy: none, safe, all, or a comma-separated chunk list")
	pf.Int("zopfli", 0, "use the zopfli deflater with this many iterations")
	pf.Duration("timeout", 0, "bound on optimization time (e.g. 30s); best result so far wins")

	return cmd
}

func optionsFromFlags(cmd *cobra.Command) (*optimize.Options, error) {
	preset, _ := cmd.Flags().GetUint8("preset")
	opts := optimize.FromPreset(preset)

	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.FixErrors, _ = cmd.Flags().GetBool("fix")
	opts.OptimizeAlpha, _ = cmd.Flags().GetBool("alpha")
	opts.Scale16, _ = cmd.Flags().GetBool("scale16")
	opts.Timeout, _ = cmd.Flags().GetDuration("timeout")

	if keep, _ := cmd.Flags().GetBool("keep-interlace"); keep {
		opts.Interlace = nil
	}
	if iters, _ := cmd.Flags().GetInt("zopfli"); iters > 0 {
		opts.Deflater = deflate.Zopfli{Iterations: iters}
	}

	strip, _ := cmd.Flags().GetString("strip")
	switch strings.ToLower(strip) {
	case "", "none":
		opts.Strip = png.StripNone{}
	case "safe":
		opts.Strip = png.StripSafe{}
	case "all":
		opts.Strip = png.StripAll{}
	default:
		// Chunk names are case sensitive; split the raw value.
		names := strings.Split(strip, ",")
		for _, n := range names {
			if len(n) != 4 {
				return nil, fmt.Errorf("invalid chunk name %q in --strip", n)
			}
		}
		opts.Strip = png.StripNamed{Names: png.NameSet(names...)}
	}
	return opts, nil
}
