package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/chatvoice/internal/config"
	"github.com/MrWong99/chatvoice/internal/textnorm"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <text>...",
	Short: "Print what the bot would say for a chat message",
	Long: "Runs the text pipeline against the configured dictionary and accent " +
		"ledger without recording new spellings, and prints the result.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		normalizer, _, closeLedger, err := openNormalizer(cmd.Context(), cfg, slog.Default(), textnorm.WithoutLearning())
		if err != nil {
			return err
		}
		defer closeLedger()

		res := normalizer.Normalize(cmd.Context(), strings.Join(args, " "))
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Text)
		for _, m := range res.Masked {
			fmt.Fprintf(out, "masked: %s\n", m)
		}
		return nil
	},
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the ElevenLabs voices available to the configured API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.TTS.Premium.APIKey == "" {
			return errors.New("no ElevenLabs API key: set ELEVEN_API_KEY or tts.premium.api_key")
		}
		reg := config.NewRegistry()
		registerBuiltins(reg)
		src, err := reg.CreateSource(config.EngineElevenLabs, cfg.TTS)
		if err != nil {
			return err
		}
		lister, ok := src.(tts.VoiceLister)
		if !ok {
			return fmt.Errorf("%s cannot list voices", src.Name())
		}
		list, err := lister.ListVoices(cmd.Context())
		if err != nil {
			return err
		}

		configured := make(map[string]string, len(cfg.TTS.Premium.Voices))
		for preset, id := range cfg.TTS.Premium.Voices {
			configured[id] = preset
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRESET")
		for _, v := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Name, v.Category, configured[v.ID])
		}
		return tw.Flush()
	},
}
