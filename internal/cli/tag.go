package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/disfl"
	"github.com/happyhackingspace/disfl/features"
)

func (c *CLI) newTagCommand() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "tag [file]",
		Short: "Tag POS-tagged sentences with a trained model",
		Long: `Reads one sentence per line as space-separated word/POS tokens and prints
each token as word/TAG.`,
		Args: cobra.MaximumNArgs(1),
		Example: `  disfl tag sentences.txt --model model.json
  echo "i/PRP mean/VBP the/DT the/DT dog/NN" | disfl tag -m model.json --strategy independent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if modelPath == "" {
				modelPath = cfg.Model.Path
			}

			start := time.Now()
			tagger, err := disfl.Load(modelPath, cfg.Grammar)
			if err != nil {
				return err
			}
			slog.Debug("Model loaded", "path", modelPath, "duration", time.Since(start))

			in, name, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()

			var sentences [][]features.Token
			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for line := 1; scanner.Scan(); line++ {
				if strings.TrimSpace(scanner.Text()) == "" {
					continue
				}
				tokens, err := features.ParseTokens(scanner.Text())
				if err != nil {
					return fmt.Errorf("%s:%d: %w", name, line, err)
				}
				sentences = append(sentences, tokens)
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}

			start = time.Now()
			seqs, err := tagger.TagBatch(cmd.Context(), sentences, cfg.Decode.Strategy, cfg.Decode.Workers)
			if err != nil {
				return err
			}
			slog.Debug("Tagging completed", "sentences", len(sentences), "duration", time.Since(start))

			out := cmd.OutOrStdout()
			for i, tokens := range sentences {
				parts := make([]string, len(tokens))
				for j, tok := range tokens {
					parts[j] = tok.Word + "/" + string(seqs[i][j])
				}
				if _, err := fmt.Fprintln(out, strings.Join(parts, " ")); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Path to model file (default from config)")
	return cmd
}
