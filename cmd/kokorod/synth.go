package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/kokoro-openai-server/internal/audio"
	"github.com/example/kokoro-openai-server/internal/kokoro"
	"github.com/example/kokoro-openai-server/internal/tokenizer"
	"github.com/example/kokoro-openai-server/internal/tts"
)

func newSynthCmd() *cobra.Command {
	var (
		text   string
		out    string
		voice  string
		speed  float64
		format string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("--text is required")
			}

			selectedVoice := voice
			if selectedVoice == "" {
				selectedVoice = cfg.TTS.DefaultVoice
			}
			resolved, err := tts.NewCatalog().Resolve(selectedVoice)
			if err != nil {
				return err
			}

			tok, err := tokenizer.NewSentencePiece(cfg.Paths.TokenizerPath)
			if err != nil {
				return fmt.Errorf("load tokenizer: %w", err)
			}

			eng, err := kokoro.NewEngine(kokoro.Config{
				ModelPath:   cfg.Paths.ModelPath,
				VoicesPath:  cfg.Paths.VoicesPath,
				LibraryPath: cfg.Runtime.ORTLibraryPath,
				APIVersion:  cfg.Runtime.ORTAPIVersion,
			})
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			svc := tts.NewService(tok, eng.Styles(), eng, cfg.TTS.MaxChunkChars)
			samples, err := svc.Synthesize(cmd.Context(), tts.Request{
				Text:  text,
				Voice: resolved,
				Speed: float32(speed),
			})
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "pcm":
				data = audio.EncodePCM16(samples)
			case "wav", "":
				data, err = audio.EncodeWAV(samples)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported format %q (want wav or pcm)", format)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d samples)\n", out, len(samples))
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice ID or OpenAI alias (default from config)")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "Speed multiplier (0.25-4.0)")
	cmd.Flags().StringVar(&format, "format", "wav", "Output format (wav|pcm)")

	return cmd
}
