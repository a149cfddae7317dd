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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/bhasha/internal/detector"
	"github.com/valpere/bhasha/internal/langid"
	"github.com/valpere/bhasha/internal/orchestrator"
)

var (
	detectFile     string
	detectSelected string
	detectExplain  bool
	detectRemote   bool
	detectJSON     bool
)

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Identify the language of a message",
	Long: `Identify the language of a message.

The text is taken from the arguments, from --file, or from stdin.
By default only the offline heuristic runs. With --remote the configured
detection services are queried first (detect.services) and the heuristic
answers only when none of them succeeds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := detectInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx, globalConfig, detectRemote)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.classifier.Catalog().Supports(detectSelected) {
			return fmt.Errorf("unsupported language: %s", detectSelected)
		}

		res := a.orch.Resolve(ctx, detector.DetectRequest{Text: text, Selected: detectSelected})

		if db := a.history(); db != nil && detectRemote {
			if _, err := db.SaveDetection(ctx, res.Record(text, detectSelected)); err != nil {
				slog.Warn("failed to record detection", "error", err)
			}
		}

		out := cmd.OutOrStdout()
		if detectJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Fprintln(out, res.Language)
		if detectExplain {
			explain(out, a.classifier.Catalog(), res)
		}
		return nil
	},
}

func detectInput(stdin io.Reader, args []string) (string, error) {
	var data []byte
	var err error
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case detectFile != "" && detectFile != "-":
		data, err = os.ReadFile(detectFile)
	default:
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

func explain(w io.Writer, catalog *langid.Catalog, res *orchestrator.Resolution) {
	h := res.Heuristic

	fmt.Fprintf(w, "\nresolved by:  %s", res.Service)
	switch {
	case res.Cached:
		fmt.Fprint(w, " (cached)")
	case res.Fallback:
		fmt.Fprint(w, " (fallback)")
	}
	fmt.Fprintln(w)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, r := range res.Results {
		fmt.Fprintf(w, "  %-10s %-4s %.2f  %s\n", r.ServiceName, r.Language, r.Confidence, r.Latency.Round(1e6))
	}

	fmt.Fprintf(w, "heuristic:    %s via %s (confidence %.2f)\n", h.Language, h.Method, h.Confidence)
	if len(h.Tokens) > 0 {
		fmt.Fprintf(w, "tokens:       %s\n", strings.Join(h.Tokens, " "))
	}
	if len(h.Candidates) > 0 {
		fmt.Fprintf(w, "candidates:   %s\n", strings.Join(h.Candidates, ", "))
	}

	codes := make([]string, 0, len(h.Matches))
	for code := range h.Matches {
		codes = append(codes, code)
	}
	order := catalog.Codes()
	rank := make(map[string]int, len(order))
	for i, c := range order {
		rank[c] = i
	}
	sort.Slice(codes, func(i, j int) bool { return rank[codes[i]] < rank[codes[j]] })

	for _, code := range codes {
		m := h.Matches[code]
		fmt.Fprintf(w, "  %-4s %d  %s\n", code, m.Count, strings.Join(m.Words, ", "))
	}
	for _, e := range h.Exclusive {
		fmt.Fprintf(w, "  exclusive: %s -> %s\n", e.Word, e.Language)
	}
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVarP(&detectFile, "file", "f", "", "read text from file (- for stdin)")
	detectCmd.Flags().StringVarP(&detectSelected, "selected", "s", "en", "language currently selected in the widget")
	detectCmd.Flags().BoolVar(&detectExplain, "explain", false, "show how the language was chosen")
	detectCmd.Flags().BoolVar(&detectRemote, "remote", false, "query the configured remote detection services")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the full resolution as JSON")
}
