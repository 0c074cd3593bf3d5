package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meysamhadeli/codai-impact/code_analyzer"
	"github.com/meysamhadeli/codai-impact/constants/lipgloss"
	"github.com/meysamhadeli/codai-impact/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the dependency analysis cache",
	Long: `The 'reset-cache' command removes cached dependency analysis results from the cache directory.
Use --older-than to only remove entries written before a given age, or --stats to inspect the cache
without removing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		return handleResetCacheCommand(cmd, force, stats, olderThan)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	resetCacheCmd.Flags().Duration("older-than", 0, "Only remove entries older than this age (e.g., '72h')")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(cmd *cobra.Command, force bool, showStats bool, olderThan time.Duration) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if rootDependencies.Cache == nil {
		fmt.Fprintln(out, lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return nil
	}

	if showStats {
		return printCacheStats(out, rootDependencies.Cache)
	}

	if !force {
		question := "Are you sure you want to reset the dependency cache?"
		if olderThan > 0 {
			question = fmt.Sprintf("Remove dependency cache entries older than %s?", olderThan)
		}
		confirmed, err := utils.ConfirmPrompt(bufio.NewReader(cmd.InOrStdin()), out, question)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, lipgloss.Yellow.Render("Cache reset cancelled."))
			return nil
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true).WithWriter(os.Stderr)

	spinnerInstance, _ := spinner.Start("Resetting dependency cache...")

	var deleted int
	if olderThan > 0 {
		deleted, err = rootDependencies.Cache.CleanExpiredCache(olderThan)
	} else {
		deleted, err = rootDependencies.Cache.Clear()
	}

	if spinnerInstance != nil {
		_ = spinnerInstance.Stop()
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d cache entr%s.", deleted, pluralY(deleted))))
	return nil
}

func printCacheStats(w io.Writer, cache *code_analyzer.CacheStore) error {
	cacheStats, err := cache.GetCacheStats()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, lipgloss.Info.Render("Cache Statistics:"))
	if dir, ok := cacheStats["cache_dir"].(string); ok {
		fmt.Fprintf(w, "  Cache Directory: %s\n", dir)
	}
	if files, ok := cacheStats["cache_files"].(int); ok {
		fmt.Fprintf(w, "  Cached Files: %d\n", files)
	}
	if size, ok := cacheStats["total_size"].(int64); ok {
		fmt.Fprintf(w, "  Total Size: %.2f KB\n", float64(size)/1024)
	}
	return nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
