package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"imgdupes/internal/finder"
	"imgdupes/internal/history"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type fileJSON struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type groupJSON struct {
	Label      string     `json:"label"`
	FileCount  int        `json:"file_count"`
	TotalBytes int64      `json:"total_bytes"`
	Files      []fileJSON `json:"files"`
}

type summaryJSON struct {
	Files            int    `json:"files"`
	Groups           int    `json:"groups"`
	DuplicateFiles   int    `json:"duplicate_files"`
	ReclaimableBytes int64  `json:"reclaimable_bytes"`
	KeyFailures      int    `json:"key_failures"`
	Comparisons      int64  `json:"comparisons"`
	Failures         int64  `json:"comparison_failures"`
	Duration         string `json:"duration"`
}

type scanJSON struct {
	RunID    string      `json:"run_id"`
	Root     string      `json:"root"`
	Strategy string      `json:"strategy"`
	Groups   []groupJSON `json:"groups"`
	Summary  summaryJSON `json:"summary"`
}

func newScanJSON(result *finder.Result) scanJSON {
	groups := make([]groupJSON, 0, len(result.Groups))
	for _, g := range result.Groups {
		files := make([]fileJSON, 0, len(g.Files))
		for _, f := range g.Files {
			files = append(files, fileJSON{Path: f.Path, Size: f.Size})
		}
		groups = append(groups, groupJSON{
			Label:      g.Label,
			FileCount:  g.Count(),
			TotalBytes: g.TotalSize(),
			Files:      files,
		})
	}
	stats := result.Stats
	return scanJSON{
		RunID:    result.RunID,
		Root:     result.Root,
		Strategy: result.Strategy,
		Groups:   groups,
		Summary: summaryJSON{
			Files:            stats.Files,
			Groups:           len(result.Groups),
			DuplicateFiles:   finder.DuplicateFiles(result.Groups),
			ReclaimableBytes: finder.Reclaimable(result.Groups),
			KeyFailures:      stats.KeyFailures,
			Comparisons:      stats.Comparisons,
			Failures:         stats.ComparisonFailures,
			Duration:         stats.Duration.Round(time.Millisecond).String(),
		},
	}
}

type runJSON struct {
	ID               string `json:"id"`
	Root             string `json:"root"`
	Strategy         string `json:"strategy"`
	StartedAt        string `json:"started_at"`
	DurationMillis   int64  `json:"duration_ms"`
	Files            int    `json:"files"`
	Groups           int    `json:"groups"`
	DuplicateFiles   int    `json:"duplicate_files"`
	ReclaimableBytes int64  `json:"reclaimable_bytes"`
	Outcome          string `json:"outcome"`
	Error            string `json:"error,omitempty"`
}

func newRunJSON(runs []history.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, runJSON{
			ID:               r.ID,
			Root:             r.Root,
			Strategy:         r.Strategy,
			StartedAt:        r.StartedAt.UTC().Format(time.RFC3339),
			DurationMillis:   r.Duration.Milliseconds(),
			Files:            r.Files,
			Groups:           r.Groups,
			DuplicateFiles:   r.DuplicateFiles,
			ReclaimableBytes: r.ReclaimableBytes,
			Outcome:          r.Outcome,
			Error:            r.Error,
		})
	}
	return out
}

type hashJSON struct {
	Path           string `json:"path"`
	Size           int64  `json:"size"`
	SHA256         string `json:"sha256"`
	Perceptual     string `json:"phash,omitempty"`
	PerceptualBits string `json:"phash_bits,omitempty"`
	RoughKey       string `json:"rough_key,omitempty"`
	Error          string `json:"error,omitempty"`
}
