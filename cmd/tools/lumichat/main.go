// Command lumichat runs the turn pipeline in a terminal without the HTTP
// layer.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	emotionanalysis "github.com/zhouzirui/lumi/backend/internal/analysis/emotion"
	"github.com/zhouzirui/lumi/backend/internal/analysis/intent"
	"github.com/zhouzirui/lumi/backend/internal/analysis/text"
	"github.com/zhouzirui/lumi/backend/internal/app"
	"github.com/zhouzirui/lumi/backend/internal/config"
	"github.com/zhouzirui/lumi/backend/internal/logging"
	chatservice "github.com/zhouzirui/lumi/backend/internal/service/chat"
)

var (
	personaID  string
	mode       string
	split      bool
	smallTalk  bool
	shortInput bool
	noStore    bool
	verbose    bool
	topK       int
)

var rootCmd = &cobra.Command{
	Use:   "lumichat",
	Short: "Talk to Lumi from the terminal",
	Long: `lumichat wires the same services as the API server and reads one
utterance per line from stdin. Type "exit" or press Ctrl-D to leave.`,
	RunE: runChat,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Print the lexicon emotion scores for a sentence",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scores := emotionanalysis.Analyze(strings.Join(args, " "), topK)
		for _, s := range scores {
			fmt.Fprintf(cmd.OutOrStdout(), "%-15s %.3f\n", s.Label, s.Score)
		}
		return nil
	},
}

var intentCmd = &cobra.Command{
	Use:   "intent [text]",
	Short: "Print the matched intent for each sentence",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.Join(args, " ")
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "utterance: %s\n", intent.Classify(text.Normalize(raw)))
		for _, sentence := range text.SplitSentences(raw) {
			fmt.Fprintf(out, "  %q -> %s\n", sentence, intent.ClassifySentence(text.Normalize(sentence)))
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&personaID, "persona", "", "persona id (default persona when empty)")
	rootCmd.Flags().StringVar(&mode, "mode", "", "override ROUTER_MODE (generate or hosted)")
	rootCmd.Flags().BoolVar(&split, "split", false, "answer each sentence separately")
	rootCmd.Flags().BoolVar(&smallTalk, "small-talk", false, "enable the extended small-talk rules")
	rootCmd.Flags().BoolVar(&shortInput, "short-input", false, "answer very short inputs with a canned prompt")
	rootCmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist the transcript")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	classifyCmd.Flags().IntVar(&topK, "top", 3, "number of labels to print")

	rootCmd.AddCommand(classifyCmd, intentCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	application, err := app.Build(ctx, cfg, logger, app.Options{DisableStorage: noStore})
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	session, err := application.Chat.CreateSession(ctx, personaID)
	if err != nil {
		return err
	}
	logger.Debug("session started", zap.String("session", session.ID))

	loc := application.Zones.Location(ctx)
	return repl(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), application.Chat, session.ID, loc)
}

// applyFlags overrides cfg with the flags the user set and validates the result.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if mode != "" {
		cfg.Router.Mode = strings.ToLower(strings.TrimSpace(mode))
	}
	if cmd.Flags().Changed("split") {
		cfg.Router.SplitSentences = split
	}
	if cmd.Flags().Changed("small-talk") {
		cfg.Router.SmallTalk = smallTalk
	}
	if cmd.Flags().Changed("short-input") {
		cfg.Router.ShortInputFallback = shortInput
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// repl prints the transcript so far, then answers one line at a time.
func repl(ctx context.Context, in io.Reader, out io.Writer, chatSvc *chatservice.Service, sessionID string, loc *time.Location) error {
	history, err := chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, msg := range history {
		fmt.Fprintf(out, "[%s] Lumi: %s\n", msg.DisplayTime(loc), msg.Content)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "exit") {
			return nil
		}

		turn, err := chatSvc.Submit(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if turn == nil {
			continue
		}
		fmt.Fprintf(out, "[%s] Lumi: %s\n", turn.Assistant.DisplayTime(loc), turn.Assistant.Content)
	}
}
