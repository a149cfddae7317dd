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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/bhasha/internal/chat"
	"github.com/valpere/bhasha/internal/langid"
	"github.com/valpere/bhasha/internal/webhook"
)

var (
	chatSelected string
	chatVoice    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Talk to the assistant backend from the terminal",
	Long: `Send messages to the assistant backend (webhook.url) the way the widget does.

Each message is detected first; when it is in a different language than the
selected one, the conversation switches to it. Without arguments an
interactive session reads one message per line from stdin.

Interactive commands:
  /lang <code>   select a language manually
  /quit          end the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig
		if cfg.Webhook.URL == "" {
			return fmt.Errorf("webhook.url is not configured")
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		catalog := a.classifier.Catalog()
		if !catalog.Supports(chatSelected) {
			return fmt.Errorf("unsupported language: %s", chatSelected)
		}

		conv := chat.NewConversation(chatSelected, a.orch, webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Timeout), slog.Default())
		say := func(text string) error {
			selected := conv.Session().Selected
			var turn *chat.Turn
			var err error
			if chatVoice {
				turn, err = conv.SendTranscript(ctx, text)
			} else {
				turn, err = conv.Send(ctx, text)
			}
			if err != nil {
				return err
			}
			if db := a.history(); db != nil && turn.Resolution != nil {
				if _, err := db.SaveDetection(ctx, turn.Resolution.Record(text, selected)); err != nil {
					slog.Warn("failed to record detection", "error", err)
				}
			}
			printTurn(catalog, turn)
			return nil
		}

		if len(args) > 0 {
			return say(strings.Join(args, " "))
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprintf(os.Stderr, "[%s]> ", conv.Session().Selected)
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
				continue
			case line == "/quit":
				return nil
			case strings.HasPrefix(line, "/lang"):
				code := strings.TrimSpace(strings.TrimPrefix(line, "/lang"))
				if !catalog.Supports(code) {
					fmt.Fprintf(os.Stderr, "unsupported language: %q (choose from %s)\n", code, strings.Join(catalog.Codes(), ", "))
					continue
				}
				conv.SelectLanguage(code)
				continue
			}
			if err := say(line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
		return scanner.Err()
	},
}

func printTurn(catalog *langid.Catalog, turn *chat.Turn) {
	if turn.ShowBadge {
		name := turn.Detected
		if p, ok := catalog.Lookup(turn.Detected); ok {
			name = p.Name
		}
		fmt.Fprintf(os.Stderr, "(detected: %s)\n", name)
	}
	fmt.Println(turn.Reply)
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatSelected, "selected", "s", "en", "initially selected language")
	chatCmd.Flags().BoolVar(&chatVoice, "voice", false, "treat messages as speech transcripts")
}
