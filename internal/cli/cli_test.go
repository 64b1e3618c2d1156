package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/disfl"
	"github.com/happyhackingspace/disfl/crf"
	"github.com/happyhackingspace/disfl/decoder"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	c := New("test")
	var out, errOut bytes.Buffer
	c.rootCmd.SetArgs(append([]string{"-s"}, args...))
	c.rootCmd.SetIn(strings.NewReader(stdin))
	c.rootCmd.SetOut(&out)
	c.rootCmd.SetErr(&errOut)
	err := c.Run()
	return out.String(), err
}

const scenario = `[{"O":0.6,"BE":0.4},{"IP":0.5,"IE":0.5},{"O":0.9}]`

func TestDecodeStdin(t *testing.T) {
	out, err := run(t, scenario, "decode")
	require.NoError(t, err)
	assert.Equal(t, "BE IP O\n", out)
}

func TestDecodeIndependent(t *testing.T) {
	// IP and IE tie at position 1; IP is declared first in the grammar.
	out, err := run(t, scenario, "decode", "--strategy", "independent")
	require.NoError(t, err)
	assert.Equal(t, "O IP O\n", out)
}

func TestDecodeMultipleDocuments(t *testing.T) {
	input := scenario + "\n" +
		`{"labels":["O","BE-IP"],"scores":[[0.2,0.8],[0.9,0.1]]}` + "\n" +
		`[]`
	out, err := run(t, input, "decode", "-w", "2")
	require.NoError(t, err)
	assert.Equal(t, "BE IP O\nBE-IP O\n\n", out)
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0644))

	out, err := run(t, "", "decode", path)
	require.NoError(t, err)
	assert.Equal(t, "BE IP O\n", out)

	_, err = run(t, "", "decode", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	_, err := run(t, `[{"XX":1}]`, "decode")
	assert.ErrorIs(t, err, decoder.ErrMalformedInput)

	_, err = run(t, `{"labels":["O"],"scores":[[0.1,0.2]]}`, "decode")
	assert.ErrorIs(t, err, decoder.ErrMalformedInput)

	_, err = run(t, `[{"O":1}`, "decode")
	assert.Error(t, err)

	_, err = run(t, scenario, "decode", "--strategy", "crf")
	assert.ErrorIs(t, err, decoder.ErrUnknownStrategy)

	_, err = run(t, scenario, "decode", "--strategy", "greedy")
	assert.Error(t, err)
}

func TestDecodeCustomGrammar(t *testing.T) {
	dir := t.TempDir()
	grammar := filepath.Join(dir, "grammar.yaml")
	require.NoError(t, os.WriteFile(grammar, []byte(`
labels: [A, B]
start: [A]
end: [B]
predecessors:
  A: [A]
`), 0644))

	_, err := run(t, `[{"A":1,"B":1},{"A":1,"B":1}]`, "decode", "-g", grammar)
	assert.ErrorIs(t, err, decoder.ErrDecodingInfeasible)

	out, err := run(t, `[{"A":0.3,"B":0.7}]`, "decode", "-g", grammar, "--strategy", "independent")
	require.NoError(t, err)
	assert.Equal(t, "B\n", out)
}

func TestDecodeConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disfl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decode:\n  strategy: independent\n"), 0644))

	out, err := run(t, scenario, "decode", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, "O IP O\n", out)

	// Flags override the file.
	out, err = run(t, scenario, "decode", "-c", path, "--strategy", "constrained")
	require.NoError(t, err)
	assert.Equal(t, "BE IP O\n", out)
}

func TestGrammarCommand(t *testing.T) {
	out, err := run(t, "", "grammar")
	require.NoError(t, err)

	var g decoder.Grammar
	require.NoError(t, yaml.Unmarshal([]byte(out), &g))
	assert.Equal(t, decoder.DisfluencyGrammar(), &g)
}

func TestTagCommand(t *testing.T) {
	m := crf.NewModel(decoder.DisfluencyGrammar().Labels, nil)
	require.NoError(t, m.SetState("token=uh", decoder.IE, 5))
	tagger, err := disfl.NewCRF(m, nil)
	require.NoError(t, err)

	modelPath := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, tagger.Save(modelPath))

	input := "uh/UH\n\ni/PRP left/VBD\n"
	out, err := run(t, input, "tag", "-m", modelPath, "--strategy", "independent")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "uh/IE", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "i/"))

	out, err = run(t, input, "tag", "-m", modelPath)
	require.NoError(t, err)
	assert.NotContains(t, strings.Split(out, "\n")[0], "/IE")

	// The model's own path ignores the grammar, so a lone IE is kept.
	out, err = run(t, input, "tag", "-m", modelPath, "--strategy", "crf")
	require.NoError(t, err)
	assert.Equal(t, "uh/IE\ni/O left/O\n", out)

	_, err = run(t, "uh\n", "tag", "-m", modelPath)
	assert.Error(t, err)

	_, err = run(t, input, "tag", "-m", filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}
