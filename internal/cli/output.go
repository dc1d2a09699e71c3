package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/akhdanfadh/urlkeep/internal/store"
	"github.com/akhdanfadh/urlkeep/internal/transform"
)

// importStats tracks per-run import counts and timing.
type importStats struct {
	imported int
	replaced int
	failed   int
	folders  int
	pages    int
	duration time.Duration
}

func printExtractSummary(w io.Writer, out string, groups, tabs int) {
	fmt.Fprintf(w, "\n=== Summary ===\n")
	fmt.Fprintf(w, "Groups          : %d\n", groups)
	fmt.Fprintf(w, "Tabs            : %d\n", tabs)
	fmt.Fprintf(w, "Written         : %s\n", out)
}

func printTransformSummary(w io.Writer, report *transform.Report, elapsed time.Duration) {
	fmt.Fprintf(w, "\n=== Summary ===\n")
	fmt.Fprintf(w, "Files found     : %d\n", len(report.Written)+len(report.Failed))
	fmt.Fprintf(w, "Written         : %d\n", len(report.Written))
	if len(report.Failed) > 0 {
		fmt.Fprintf(w, "  Failed        : -%d\n", len(report.Failed))
		for _, fe := range report.Failed {
			fmt.Fprintf(w, "    %s (%s)\n", fe.File, fe.Stage)
		}
	}

	folders := 0
	for _, res := range report.Written {
		folders += res.Folders
	}
	fmt.Fprintf(w, "Folders         : %d\n", folders)
	fmt.Fprintf(w, "URLs            : %d\n", report.Links())

	fmt.Fprintf(w, "\nTiming:\n")
	fmt.Fprintf(w, "  Total time    : %.2fs\n", elapsed.Seconds())
}

func printImportSummary(w io.Writer, stats importStats, total *store.Stats) {
	fmt.Fprintf(w, "\n=== Summary ===\n")
	fmt.Fprintf(w, "Imported        : %d\n", stats.imported)
	if stats.replaced > 0 {
		fmt.Fprintf(w, "  Replaced      : %d   (earlier import of the same file)\n", stats.replaced)
	}
	if stats.failed > 0 {
		fmt.Fprintf(w, "  Failed        : -%d\n", stats.failed)
	}
	fmt.Fprintf(w, "Folders         : %d\n", stats.folders)
	fmt.Fprintf(w, "Pages           : %d\n", stats.pages)

	fmt.Fprintf(w, "\nDatabase:\n")
	fmt.Fprintf(w, "  Sources       : %d\n", total.Sources)
	fmt.Fprintf(w, "  Domains       : %d\n", total.Domains)
	fmt.Fprintf(w, "  Pages         : %d\n", total.Pages)

	fmt.Fprintf(w, "\nTiming:\n")
	fmt.Fprintf(w, "  Total time    : %.2fs\n", stats.duration.Seconds())
}
