/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/valpere/bhasha/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the detection log and cache",
	Long:  `List recorded detections, inspect and clear the SQLite detection cache.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent detections, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListDetections(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list detections: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No detections recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSELECTED\tDETECTED\tSERVICE\tMETHOD\tTEXT")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				r.Selected, r.Detected, r.Service, r.Method, snippet(r.Text, 40))
		}
		return w.Flush()
	},
}

var historyCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "List detection cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListCache(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list cache entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No entries in the detection cache.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLANGUAGE\tSERVICE\tUSED\tLAST USED\tINVALID\tTEXT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%v\t%s\n",
				e.ID, e.Language, e.Service, e.UsageCount,
				e.LastUsed.Local().Format("2006-01-02 15:04"),
				e.Invalidated, snippet(e.Text, 40))
		}
		return w.Flush()
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show detection and cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Detections:      %d\n", stats.Detections)
		fmt.Printf("Fallbacks:       %d\n", stats.Fallbacks)
		fmt.Printf("Cache entries:   %d\n", stats.TotalEntries)
		fmt.Printf("Active entries:  %d\n", stats.ActiveEntries)
		fmt.Printf("Invalid entries: %d\n", stats.InvalidEntries)
		fmt.Printf("Cache usage:     %d\n", stats.TotalUsage)

		if len(stats.ByLanguage) > 0 {
			langs := make([]string, 0, len(stats.ByLanguage))
			for code := range stats.ByLanguage {
				langs = append(langs, code)
			}
			sort.Strings(langs)
			fmt.Println("By language:")
			for _, code := range langs {
				fmt.Printf("  %-4s %d\n", code, stats.ByLanguage[code])
			}
		}
		return nil
	},
}

var historyInvalidateCmd = &cobra.Command{
	Use:   "invalidate <id>",
	Short: "Mark a cache entry as invalid so it is detected again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InvalidateCache(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to invalidate entry: %w", err)
		}
		fmt.Printf("Invalidated entry: %s\n", args[0])
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a cache entry by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteCache(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Printf("Deleted entry: %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from the detection cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearCache(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Cleared %d entries from the detection cache.\n", n)
		return nil
	},
}

func openStore() (*store.Store, error) {
	if _, err := os.Stat(globalConfig.DBPath); err != nil {
		return nil, fmt.Errorf("database not found at %s: %w", globalConfig.DBPath, err)
	}
	db, err := store.New(globalConfig.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func snippet(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-3]) + "..."
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyCacheCmd, historyStatsCmd,
		historyInvalidateCmd, historyDeleteCmd, historyClearCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of detections to show")
}
