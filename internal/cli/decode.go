package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/disfl/decoder"
)

// matrixInput is the N×K form of one sequence's scores.
type matrixInput struct {
	Labels []decoder.Label `json:"labels"`
	Scores [][]float64     `json:"scores"`
}

func (c *CLI) newDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode per-token label scores into disfluency tags",
		Long: `Reads one or more JSON documents, each describing one sequence, and prints
one line of tags per sequence. A document is either a list of label->score
objects or an object with "labels" and an N×K "scores" matrix.`,
		Args: cobra.MaximumNArgs(1),
		Example: `  # Decode a file with the disfluency grammar
  disfl decode scores.json

  # Per-token argmax, ignoring the grammar
  disfl decode scores.json --strategy independent

  # Custom grammar from stdin
  echo '[{"O":0.6,"BE":0.4},{"IP":0.5,"IE":0.5},{"O":0.9}]' | disfl decode -g grammar.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			d, err := cfg.Decoder()
			if err != nil {
				return err
			}

			in, name, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()

			batch, err := readDistributions(in)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			slog.Debug("Decoding", "input", name, "sequences", len(batch), "strategy", cfg.Decode.Strategy)

			start := time.Now()
			seqs, err := decoder.DecodeBatch(cmd.Context(), d, batch, cfg.Decode.Workers)
			if err != nil {
				return err
			}
			slog.Debug("Decoding completed", "duration", time.Since(start))
			return writeSequences(cmd.OutOrStdout(), seqs)
		},
	}
	return cmd
}

// readDistributions reads a stream of JSON documents, one per sequence.
func readDistributions(r io.Reader) ([][]decoder.Distribution, error) {
	dec := json.NewDecoder(r)
	var batch [][]decoder.Distribution
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return batch, nil
			}
			return nil, fmt.Errorf("parse input: %w", err)
		}
		dists, err := parseDistributions(raw)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", len(batch), err)
		}
		batch = append(batch, dists)
	}
}

func parseDistributions(raw json.RawMessage) ([]decoder.Distribution, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var m matrixInput
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", decoder.ErrMalformedInput, err)
		}
		return decoder.FromMatrix(m.Labels, m.Scores)
	}
	var dists []decoder.Distribution
	if err := json.Unmarshal(raw, &dists); err != nil {
		return nil, fmt.Errorf("%w: %v", decoder.ErrMalformedInput, err)
	}
	return dists, nil
}
