package disfl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/disfl/crf"
	"github.com/happyhackingspace/disfl/decoder"
	"github.com/happyhackingspace/disfl/features"
	"github.com/happyhackingspace/disfl/internal/vectorizer"
	"github.com/happyhackingspace/disfl/maxent"
)

func testCRF(t *testing.T) *crf.Model {
	t.Helper()
	m := crf.NewModel(decoder.DisfluencyGrammar().Labels, nil)
	require.NoError(t, m.SetState("token=uh", decoder.IE, 5))
	require.NoError(t, m.SetState("token=the", decoder.BE, 1))
	require.NoError(t, m.SetState("token_bigram+1=the the", decoder.BE, 1))
	require.NoError(t, m.SetState("pos=PRP", decoder.O, 2))
	require.NoError(t, m.SetTransition(decoder.BE, decoder.IP, 1))
	return m
}

func mustTokens(t *testing.T, line string) []features.Token {
	t.Helper()
	tokens, err := features.ParseTokens(line)
	require.NoError(t, err)
	return tokens
}

func TestTagConstrainedIsFeasible(t *testing.T) {
	tagger, err := NewCRF(testCRF(t), nil)
	require.NoError(t, err)

	tokens := mustTokens(t, "uh/UH")
	ind, err := tagger.Tag(tokens, decoder.StrategyIndependent)
	require.NoError(t, err)
	assert.Equal(t, decoder.Sequence{decoder.IE}, ind)

	seq, err := tagger.Tag(tokens, decoder.StrategyConstrained)
	require.NoError(t, err)
	require.NoError(t, tagger.Grammar().Check(seq))
}

func TestTagMatchesDecoder(t *testing.T) {
	tagger, err := NewCRF(testCRF(t), nil)
	require.NoError(t, err)

	tokens := mustTokens(t, "the/DT the/DT dog/NN she/PRP uh/UH left/VBD")
	dists, err := tagger.Distributions(tokens)
	require.NoError(t, err)
	require.Len(t, dists, len(tokens))

	want, err := decoder.Decode(dists, decoder.DisfluencyGrammar())
	require.NoError(t, err)

	got, err := tagger.Tag(tokens, "")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, tagger.Grammar().Check(got))
}

func TestTagEmptySentence(t *testing.T) {
	tagger, err := NewCRF(testCRF(t), nil)
	require.NoError(t, err)

	seq, err := tagger.Tag(nil, decoder.StrategyConstrained)
	require.NoError(t, err)
	assert.Empty(t, seq)
}

func TestTagBatch(t *testing.T) {
	tagger, err := NewCRF(testCRF(t), nil)
	require.NoError(t, err)

	sentences := [][]features.Token{
		mustTokens(t, "i/PRP uh/UH i/PRP left/VBD"),
		mustTokens(t, "the/DT the/DT dog/NN"),
		nil,
	}
	seqs, err := tagger.TagBatch(context.Background(), sentences, decoder.StrategyConstrained, 2)
	require.NoError(t, err)
	require.Len(t, seqs, len(sentences))
	for i, s := range sentences {
		want, err := tagger.Tag(s, decoder.StrategyConstrained)
		require.NoError(t, err)
		assert.Equal(t, want, seqs[i])
	}
}

func TestUnknownStrategy(t *testing.T) {
	tagger, err := NewCRF(testCRF(t), nil)
	require.NoError(t, err)

	_, err = tagger.Tag(mustTokens(t, "a/DT"), "beam")
	assert.ErrorIs(t, err, decoder.ErrUnknownStrategy)
}

func TestInfeasibleGrammar(t *testing.T) {
	g := decoder.DisfluencyGrammar()
	g.End = []decoder.Label{decoder.IP}
	g.Start = []decoder.Label{decoder.O}
	tagger, err := NewCRF(testCRF(t), g)
	require.NoError(t, err)

	_, err = tagger.Tag(mustTokens(t, "a/DT"), decoder.StrategyConstrained)
	assert.ErrorIs(t, err, decoder.ErrDecodingInfeasible)

	seq, err := tagger.Tag(mustTokens(t, "a/DT"), decoder.StrategyIndependent)
	require.NoError(t, err)
	assert.Len(t, seq, 1)
}

func TestModelLabelsOutsideGrammar(t *testing.T) {
	m := crf.NewModel([]decoder.Label{decoder.O, "EDIT"}, nil)
	_, err := NewCRF(m, nil)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()

	crfTagger, err := NewCRF(testCRF(t), nil)
	require.NoError(t, err)

	vec := vectorizer.NewDictVectorizer()
	vec.Fit([]map[string]any{{"token": "uh"}})
	me := &maxent.Model{
		Classes:    []decoder.Label{decoder.O, decoder.BEIP},
		Coef:       [][]float64{{0}, {3}},
		Intercept:  []float64{0, 0},
		Vectorizer: vec,
	}
	meTagger, err := NewMaxEnt(me, nil)
	require.NoError(t, err)

	tokens := mustTokens(t, "i/PRP uh/UH i/PRP left/VBD")
	for name, tagger := range map[string]*Tagger{"crf": crfTagger, "maxent": meTagger} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, tagger.Save(path))

			loaded, err := Load(path, nil)
			require.NoError(t, err)

			want, err := tagger.Tag(tokens, decoder.StrategyConstrained)
			require.NoError(t, err)
			got, err := loaded.Tag(tokens, decoder.StrategyConstrained)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	seq, err := meTagger.Tag(tokens, decoder.StrategyConstrained)
	require.NoError(t, err)
	assert.Equal(t, decoder.Sequence{decoder.O, decoder.BEIP, decoder.O, decoder.O}, seq)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "nonexistent.json"), nil)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"kind":"hmm"}`), 0644))
	_, err = Load(bad, nil)
	assert.ErrorContains(t, err, "unknown model kind")

	missing := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missing, []byte(`{"kind":"crf"}`), 0644))
	_, err = Load(missing, nil)
	assert.Error(t, err)
}

func TestPredictIgnoresGrammar(t *testing.T) {
	m := testCRF(t)
	tagger, err := NewCRF(m, nil)
	require.NoError(t, err)

	// IE scores highest but cannot end a sentence.
	tokens := mustTokens(t, "uh/UH")
	native, err := tagger.Tag(tokens, StrategyCRF)
	require.NoError(t, err)
	assert.Equal(t, decoder.Sequence{decoder.IE}, native)
	assert.ErrorIs(t, tagger.Grammar().Check(native), decoder.ErrInfeasibleSequence)

	dists, err := tagger.Distributions(tokens)
	require.NoError(t, err)
	constrained, err := decoder.Decode(dists, tagger.Grammar())
	require.NoError(t, err)
	assert.NotEqual(t, native, constrained)
	assert.NoError(t, tagger.Grammar().Check(constrained))

	tokens = mustTokens(t, "the/DT the/DT dog/NN she/PRP uh/UH left/VBD")
	got, err := tagger.Predict(tokens)
	require.NoError(t, err)
	assert.Equal(t, m.Predict(crf.SequenceAttributes(features.Sentence(tokens))), got)
}

func TestPredictBatch(t *testing.T) {
	tagger, err := NewCRF(testCRF(t), nil)
	require.NoError(t, err)

	sentences := [][]features.Token{
		mustTokens(t, "uh/UH"),
		mustTokens(t, "the/DT the/DT dog/NN"),
		nil,
	}
	seqs, err := tagger.TagBatch(context.Background(), sentences, StrategyCRF, 0)
	require.NoError(t, err)
	require.Len(t, seqs, len(sentences))
	for i, s := range sentences {
		want, err := tagger.Predict(s)
		require.NoError(t, err)
		assert.Equal(t, want, seqs[i])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tagger.TagBatch(ctx, sentences, StrategyCRF, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictNeedsCRF(t *testing.T) {
	vec := vectorizer.NewDictVectorizer()
	vec.Fit([]map[string]any{{"token": "uh"}})
	tagger, err := NewMaxEnt(&maxent.Model{
		Classes:    []decoder.Label{decoder.O},
		Coef:       [][]float64{{1}},
		Intercept:  []float64{0},
		Vectorizer: vec,
	}, nil)
	require.NoError(t, err)

	tokens := mustTokens(t, "uh/UH")
	_, err = tagger.Tag(tokens, StrategyCRF)
	assert.ErrorIs(t, err, decoder.ErrUnknownStrategy)
	_, err = tagger.TagBatch(context.Background(), [][]features.Token{tokens}, StrategyCRF, 1)
	assert.ErrorIs(t, err, decoder.ErrUnknownStrategy)
}

func TestLoadRejectsInconsistentModel(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]struct {
		body string
		want error
	}{
		"attribute id out of range": {
			body: `{"kind":"crf","crf":{"labels":{"to_id":{"O":0},"to_str":["O"]},"attributes":{"to_id":{"bias":7},"to_str":["bias"]},"weights":[0.5,0],"num_labels":1}}`,
			want: crf.ErrBadModel,
		},
		"label ids disagree": {
			body: `{"kind":"crf","crf":{"labels":{"to_id":{"O":1,"BE":0},"to_str":["O","BE"]},"attributes":{"to_id":{},"to_str":[]},"weights":[0,0,0,0],"num_labels":2}}`,
			want: crf.ErrBadModel,
		},
		"feature index out of range": {
			body: `{"kind":"maxent","maxent":{"classes":["O"],"coef":[[1]],"intercept":[0],"vectorizer":{"feature_names":["token=uh"],"feature_index":{"token=uh":3}}}}`,
			want: maxent.ErrBadModel,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "-")+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))
			_, err := Load(path, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTaggerNotInitialized(t *testing.T) {
	tagger := &Tagger{}
	_, err := tagger.Tag(nil, decoder.StrategyConstrained)
	assert.Error(t, err)
	assert.Error(t, tagger.Save(filepath.Join(t.TempDir(), "x.json")))
	_, err = tagger.Predict(nil)
	assert.Error(t, err)
}
