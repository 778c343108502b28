package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/telesales-sim/backend/internal/config"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	"github.com/zhouzirui/telesales-sim/backend/internal/observability"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/ai"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/speech"
)

var (
	flagPersona string
	flagText    string
	flagOut     string
	flagMessage string
	flagHistory []string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "speechtester",
	Short:         "Exercise the persona catalogue, TTS voices and LLM replies from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		observability.InitLogger(os.Getenv("LOG_LEVEL"))
	},
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the customer personas and their voices",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := catalogue(cfg)
		if err != nil {
			return err
		}
		return printPersonas(cmd.OutOrStdout(), store.List())
	},
}

var sayCmd = &cobra.Command{
	Use:   "say",
	Short: "Synthesize text with a persona's voice and write an MP3",
	RunE:  runSay,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run one customer reply through the configured LLM",
	RunE:  runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPersona, "persona", "p", "", "persona id (default DEFAULT_PERSONA)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 45*time.Second, "request timeout")

	sayCmd.Flags().StringVarP(&flagText, "text", "t", "", "text to speak")
	sayCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output MP3 path (default speech-<persona>.mp3)")
	_ = sayCmd.MarkFlagRequired("text")

	chatCmd.Flags().StringVarP(&flagMessage, "message", "m", "", "what the staff member says")
	chatCmd.Flags().StringArrayVar(&flagHistory, "history", nil, "earlier transcript line, repeatable")
	_ = chatCmd.MarkFlagRequired("message")

	rootCmd.AddCommand(personasCmd, sayCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func catalogue(cfg *config.Config) (*persona.MemoryStore, error) {
	if cfg.Persona.File == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	items, err := persona.LoadFile(cfg.Persona.File, cfg.Speech.Language)
	if err != nil {
		return nil, err
	}
	return persona.NewMemoryStore(items), nil
}

func pickPersona(cfg *config.Config, store persona.Store) (persona.Persona, error) {
	id := flagPersona
	if id == "" {
		id = cfg.Persona.DefaultID
	}
	p, ok := store.FindByID(id)
	if !ok {
		return persona.Persona{}, fmt.Errorf("%w: %q", persona.ErrNotFound, id)
	}
	return p, nil
}

func printPersonas(w io.Writer, items []persona.Persona) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVOICE\tPITCH\tRATE")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.2f\n", p.ID, p.Name, p.Voice.Name, p.Voice.Pitch, p.Voice.Rate)
	}
	return tw.Flush()
}

func runSay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Speech.Enabled {
		return errors.New("speech is disabled: set TTS_API_KEY or TTS_USE_ADC=true")
	}

	store, err := catalogue(cfg)
	if err != nil {
		return err
	}
	p, err := pickPersona(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	synth, err := speech.NewGoogleSynthesizer(ctx, speech.GoogleConfig{APIKey: cfg.Speech.APIKey, UseADC: cfg.Speech.UseADC})
	if err != nil {
		return err
	}
	defer synth.Close()

	svc := speech.NewService(synth, cfg.Speech.Language, flagTimeout)
	resp, err := svc.Synthesize(ctx, flagText, p.Voice)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	out := flagOut
	if out == "" {
		out = fmt.Sprintf("speech-%s.mp3", p.ID)
	}
	if err := os.WriteFile(out, resp.AudioData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %d bytes -> %s in %s\n",
		p.Name, p.Voice.Name, len(resp.AudioData), out, resp.Elapsed.Round(time.Millisecond))
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.AI.Enabled() {
		return fmt.Errorf("no credentials for LLM_PROVIDER=%s", cfg.AI.Provider)
	}

	store, err := catalogue(cfg)
	if err != nil {
		return err
	}
	p, err := pickPersona(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		return err
	}
	svc, err := ai.NewService(ctx, chatModel, ai.Options{Timeout: flagTimeout})
	if err != nil {
		return err
	}

	history := make(chat.Transcript, 0, len(flagHistory))
	for _, line := range flagHistory {
		if line = strings.TrimSpace(line); line != "" {
			history = append(history, line)
		}
	}

	start := time.Now()
	reply, err := svc.Reply(ctx, &p, history, flagMessage)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n(%s, %s)\n",
		chat.Line(chat.StaffSpeaker, flagMessage), chat.Line(p.Name, reply),
		cfg.AI.ModelName(), time.Since(start).Round(time.Millisecond))
	return nil
}
