package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imgdupes/internal/fileutil"
	"imgdupes/internal/imagefile"
	"imgdupes/internal/phash"
	"imgdupes/internal/roughgroup"
)

func newHashCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print content, perceptual, and grouping fingerprints of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			entries := make([]hashJSON, 0, len(args))
			failed := 0
			for _, arg := range args {
				entry := fingerprint(cmd, arg)
				if entry.Error != "" {
					failed++
				}
				entries = append(entries, entry)
			}

			if jsonOutput {
				if err := writeJSON(cmd, entries); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderHashes(entries))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be fingerprinted", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func fingerprint(cmd *cobra.Command, path string) hashJSON {
	file, err := imagefile.Stat(path)
	if err != nil {
		return hashJSON{Path: path, Error: err.Error()}
	}
	entry := hashJSON{Path: file.Path, Size: file.Size}
	digest, err := fileutil.HashFile(cmd.Context(), file.Path)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.SHA256 = digest.String()

	img, err := imagefile.Decode(file.Path)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	hash := phash.Hash(img)
	entry.Perceptual = fmt.Sprintf("%016x", hash)
	entry.PerceptualBits = phash.Format(hash)
	if entry.RoughKey, err = roughgroup.Key(img); err != nil {
		entry.Error = err.Error()
	}
	return entry
}

func renderHashes(entries []hashJSON) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		size := ""
		if e.Error == "" || e.SHA256 != "" {
			size = humanize.IBytes(uint64(e.Size))
		}
		last := e.RoughKey
		if e.Error != "" {
			last = "error: " + e.Error
		}
		perceptual := e.Perceptual
		if e.PerceptualBits != "" {
			perceptual += "\n" + e.PerceptualBits
		}
		rows = append(rows, []string{e.Path, size, e.SHA256, perceptual, last})
	}
	return renderTable(
		[]string{"Path", "Size", "SHA-256", "pHash (hex / bits)", "Rough key"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}
