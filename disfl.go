// Package disfl tags the tokens of a spoken-language transcript with
// disfluency labels (O, BE, BE-IP, IP, IE).
//
// A statistical model scores every label at every token; a decoder then picks
// one label per token, either independently or as the best sequence the tag
// grammar allows.
//
//	t, _ := disfl.Load("model.json", nil)
//	tokens, _ := features.ParseTokens("i/PRP mean/VBP uh/UH i/PRP think/VBP")
//	tags, _ := t.Tag(tokens, decoder.StrategyConstrained)
//	fmt.Println(tags)
package disfl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/happyhackingspace/disfl/crf"
	"github.com/happyhackingspace/disfl/decoder"
	"github.com/happyhackingspace/disfl/features"
	"github.com/happyhackingspace/disfl/maxent"
)

// Model kinds stored in a model file.
const (
	KindCRF    = "crf"
	KindMaxEnt = "maxent"
)

// StrategyCRF tags with the CRF's own Viterbi path. It applies the learned
// transition weights but not the tag grammar, and needs a CRF model.
const StrategyCRF = "crf"

// Source produces per-token label distributions for a sentence.
type Source interface {
	Labels() []decoder.Label
	Distributions(tokens []features.Token) []decoder.Distribution
}

type crfSource struct{ m *crf.Model }

func (s crfSource) Labels() []decoder.Label { return s.m.LabelSet() }

func (s crfSource) Distributions(tokens []features.Token) []decoder.Distribution {
	return s.m.Distributions(crf.SequenceAttributes(features.Sentence(tokens)))
}

type maxentSource struct{ m *maxent.Model }

func (s maxentSource) Labels() []decoder.Label { return s.m.Classes }

func (s maxentSource) Distributions(tokens []features.Token) []decoder.Distribution {
	return s.m.Distributions(features.Sentence(tokens))
}

// modelFile is the on-disk envelope of a Tagger model. The payload of the
// named kind is decoded by its own package.
type modelFile struct {
	Kind   string          `json:"kind"`
	CRF    json.RawMessage `json:"crf,omitempty"`
	MaxEnt json.RawMessage `json:"maxent,omitempty"`
}

// Tagger combines a distribution source with a tag grammar.
type Tagger struct {
	kind    string
	crf     *crf.Model
	maxent  *maxent.Model
	source  Source
	grammar *decoder.Grammar
}

// NewCRF returns a Tagger backed by CRF marginals. A nil grammar means
// decoder.DisfluencyGrammar.
func NewCRF(m *crf.Model, g *decoder.Grammar) (*Tagger, error) {
	if m == nil {
		return nil, fmt.Errorf("disfl: crf model missing")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	return newTagger(&Tagger{kind: KindCRF, crf: m, source: crfSource{m}}, g)
}

// NewMaxEnt returns a Tagger backed by a per-token logistic regression.
func NewMaxEnt(m *maxent.Model, g *decoder.Grammar) (*Tagger, error) {
	if m == nil {
		return nil, fmt.Errorf("disfl: maxent model missing")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	return newTagger(&Tagger{kind: KindMaxEnt, maxent: m, source: maxentSource{m}}, g)
}

func newTagger(t *Tagger, g *decoder.Grammar) (*Tagger, error) {
	if g == nil {
		g = decoder.DisfluencyGrammar()
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}

	known := make(map[decoder.Label]bool, len(g.Labels))
	for _, l := range g.Labels {
		known[l] = true
	}
	for _, l := range t.source.Labels() {
		if !known[l] {
			return nil, fmt.Errorf("disfl: model label %q is not in the grammar", l)
		}
	}
	t.grammar = g
	return t, nil
}

// Load reads a model file written by Save.
func Load(path string, g *decoder.Grammar) (*Tagger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("disfl: %s: %w", path, err)
	}

	var t *Tagger
	switch f.Kind {
	case KindCRF:
		if len(f.CRF) == 0 {
			return nil, fmt.Errorf("disfl: %s: crf model missing", path)
		}
		m, err := crf.UnmarshalModel(f.CRF)
		if err != nil {
			return nil, fmt.Errorf("disfl: %s: %w", path, err)
		}
		t, err = NewCRF(m, g)
		if err != nil {
			return nil, err
		}
	case KindMaxEnt:
		if len(f.MaxEnt) == 0 {
			return nil, fmt.Errorf("disfl: %s: maxent model missing", path)
		}
		m, err := maxent.UnmarshalModel(f.MaxEnt)
		if err != nil {
			return nil, fmt.Errorf("disfl: %s: %w", path, err)
		}
		t, err = NewMaxEnt(m, g)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("disfl: %s: unknown model kind %q", path, f.Kind)
	}
	slog.Debug("Model loaded", "path", path, "kind", f.Kind, "labels", len(t.source.Labels()))
	return t, nil
}

// Save writes the tagger's model to a file.
func (t *Tagger) Save(path string) error {
	if t.source == nil {
		return fmt.Errorf("disfl: tagger not initialized")
	}
	f := modelFile{Kind: t.kind}
	var err error
	switch t.kind {
	case KindCRF:
		f.CRF, err = crf.MarshalModel(t.crf)
	case KindMaxEnt:
		f.MaxEnt, err = maxent.MarshalModel(t.maxent)
	}
	if err != nil {
		return fmt.Errorf("disfl: %w", err)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("disfl: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("disfl: %w", err)
	}
	return nil
}

// Grammar returns the grammar used by the constrained strategy.
func (t *Tagger) Grammar() *decoder.Grammar {
	return t.grammar
}

// Distributions returns the model's label distribution at each token.
func (t *Tagger) Distributions(tokens []features.Token) ([]decoder.Distribution, error) {
	if t.source == nil {
		return nil, fmt.Errorf("disfl: tagger not initialized")
	}
	return t.source.Distributions(tokens), nil
}

// Tag labels every token using the named decoding strategy: one of the
// decoder strategies or StrategyCRF.
func (t *Tagger) Tag(tokens []features.Token, strategy string) (decoder.Sequence, error) {
	if strategy == StrategyCRF {
		return t.Predict(tokens)
	}
	d, err := t.decoder(strategy)
	if err != nil {
		return nil, err
	}
	dists, err := t.Distributions(tokens)
	if err != nil {
		return nil, err
	}
	seq, err := d.Decode(dists)
	if err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	return seq, nil
}

// TagBatch labels many sentences concurrently. Results keep input order.
func (t *Tagger) TagBatch(ctx context.Context, sentences [][]features.Token, strategy string, workers int) ([]decoder.Sequence, error) {
	if strategy == StrategyCRF {
		return t.predictBatch(ctx, sentences, workers)
	}
	d, err := t.decoder(strategy)
	if err != nil {
		return nil, err
	}
	batch := make([][]decoder.Distribution, len(sentences))
	for i, s := range sentences {
		if batch[i], err = t.Distributions(s); err != nil {
			return nil, err
		}
	}
	seqs, err := decoder.DecodeBatch(ctx, d, batch, workers)
	if err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	return seqs, nil
}

func (t *Tagger) decoder(strategy string) (decoder.Decoder, error) {
	if t.source == nil {
		return nil, fmt.Errorf("disfl: tagger not initialized")
	}
	d, err := decoder.NewDecoder(strategy, t.grammar)
	if err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	return d, nil
}

// Predict returns the CRF's own best path for a sentence. The result may
// break the tag grammar; a MaxEnt tagger has no such path.
func (t *Tagger) Predict(tokens []features.Token) (decoder.Sequence, error) {
	if t.source == nil {
		return nil, fmt.Errorf("disfl: tagger not initialized")
	}
	if t.crf == nil {
		return nil, fmt.Errorf("disfl: %w: %q needs a crf model, have %s",
			decoder.ErrUnknownStrategy, StrategyCRF, t.kind)
	}
	return t.crf.Predict(crf.SequenceAttributes(features.Sentence(tokens))), nil
}

func (t *Tagger) predictBatch(ctx context.Context, sentences [][]features.Token, workers int) ([]decoder.Sequence, error) {
	if _, err := t.Predict(nil); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]decoder.Sequence, len(sentences))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, tokens := range sentences {
		i, tokens := i, tokens
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seq, err := t.Predict(tokens)
			if err != nil {
				return fmt.Errorf("sentence %d: %w", i, err)
			}
			out[i] = seq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("disfl: %w", err)
	}
	return out, nil
}
