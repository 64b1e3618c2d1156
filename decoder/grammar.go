package decoder

import "fmt"

// Transition is an ordered pair of adjacent labels.
type Transition struct {
	From Label `yaml:"from" json:"from"`
	To   Label `yaml:"to" json:"to"`
}

// Grammar restricts which label sequences the constrained decoder may return.
//
// Labels is the alphabet in priority order: when two choices score the same,
// the label declared first wins. A label with no entry in Predecessors can
// only appear at position 0. Forbidden removes pairs even when Predecessors
// allows them.
type Grammar struct {
	Labels       []Label           `yaml:"labels" json:"labels"`
	Start        []Label           `yaml:"start" json:"start"`
	End          []Label           `yaml:"end" json:"end"`
	Predecessors map[Label][]Label `yaml:"predecessors" json:"predecessors"`
	Forbidden    []Transition      `yaml:"forbidden,omitempty" json:"forbidden,omitempty"`
}

// DisfluencyGrammar returns the grammar over O, BE, BE-IP, IP and IE.
//
// An edit region is either a single BE-IP or BE (IE)* IP. Fluent text and new
// edit regions may follow an interruption point directly.
func DisfluencyGrammar() *Grammar {
	return &Grammar{
		Labels: []Label{O, BE, BEIP, IP, IE},
		Start:  []Label{O, BE, BEIP},
		End:    []Label{O, BEIP, IP},
		Predecessors: map[Label][]Label{
			O:    {O, BEIP, IP},
			BE:   {O, BE, BEIP, IP},
			BEIP: {O, BEIP, IP},
			IP:   {BE, IE},
			IE:   {BE, IE},
		},
		Forbidden: []Transition{{From: BE, To: BE}},
	}
}

// Validate reports whether every label the grammar references is declared in
// its alphabet.
func (g *Grammar) Validate() error {
	if g == nil || len(g.Labels) == 0 {
		return fmt.Errorf("%w: empty alphabet", ErrInvalidGrammar)
	}
	seen := make(map[Label]bool, len(g.Labels))
	for _, l := range g.Labels {
		if seen[l] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidGrammar, l)
		}
		seen[l] = true
	}
	check := func(where string, labels []Label) error {
		for _, l := range labels {
			if !seen[l] {
				return fmt.Errorf("%w: %s references unknown label %q", ErrInvalidGrammar, where, l)
			}
		}
		return nil
	}
	if err := check("start", g.Start); err != nil {
		return err
	}
	if err := check("end", g.End); err != nil {
		return err
	}
	for l, preds := range g.Predecessors {
		if err := check("predecessors", []Label{l}); err != nil {
			return err
		}
		if err := check(fmt.Sprintf("predecessors of %q", l), preds); err != nil {
			return err
		}
	}
	for _, tr := range g.Forbidden {
		if err := check("forbidden", []Label{tr.From, tr.To}); err != nil {
			return err
		}
	}
	return nil
}

// Allows reports whether prev may immediately precede next.
func (g *Grammar) Allows(prev, next Label) bool {
	for _, tr := range g.Forbidden {
		if tr.From == prev && tr.To == next {
			return false
		}
	}
	for _, p := range g.Predecessors[next] {
		if p == prev {
			return true
		}
	}
	return false
}

// Check returns nil if seq satisfies the boundary sets and every adjacency
// rule of the grammar.
func (g *Grammar) Check(seq Sequence) error {
	if len(seq) == 0 {
		return nil
	}
	if !contains(g.Start, seq[0]) {
		return fmt.Errorf("%w: %q cannot start a sequence", ErrInfeasibleSequence, seq[0])
	}
	last := seq[len(seq)-1]
	if !contains(g.End, last) {
		return fmt.Errorf("%w: %q cannot end a sequence", ErrInfeasibleSequence, last)
	}
	for t := 1; t < len(seq); t++ {
		if !g.Allows(seq[t-1], seq[t]) {
			return fmt.Errorf("%w: %q -> %q at position %d", ErrInfeasibleSequence, seq[t-1], seq[t], t)
		}
	}
	return nil
}

func contains(labels []Label, l Label) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// compiledGrammar is the index form of a Grammar used by the decoder.
type compiledGrammar struct {
	labels  []Label
	index   map[Label]int
	start   []bool
	end     []bool
	allowed [][]bool // allowed[prev][next]
}

func compile(g *Grammar) (*compiledGrammar, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	K := len(g.Labels)
	cg := &compiledGrammar{
		labels:  append([]Label(nil), g.Labels...),
		index:   make(map[Label]int, K),
		start:   make([]bool, K),
		end:     make([]bool, K),
		allowed: make([][]bool, K),
	}
	for i, l := range g.Labels {
		cg.index[l] = i
		cg.allowed[i] = make([]bool, K)
	}
	for _, l := range g.Start {
		cg.start[cg.index[l]] = true
	}
	for _, l := range g.End {
		cg.end[cg.index[l]] = true
	}
	for next, preds := range g.Predecessors {
		for _, prev := range preds {
			cg.allowed[cg.index[prev]][cg.index[next]] = true
		}
	}
	for _, tr := range g.Forbidden {
		cg.allowed[cg.index[tr.From]][cg.index[tr.To]] = false
	}
	return cg, nil
}

// scores converts dists to a dense [T][K] matrix in alphabet order.
func (cg *compiledGrammar) scores(dists []Distribution) ([][]float64, error) {
	if err := checkScores(dists); err != nil {
		return nil, err
	}
	K := len(cg.labels)
	out := make([][]float64, len(dists))
	for t, d := range dists {
		out[t] = make([]float64, K)
		for l, v := range d {
			y, ok := cg.index[l]
			if !ok {
				return nil, fmt.Errorf("%w: unknown label %q at position %d", ErrMalformedInput, l, t)
			}
			out[t][y] = v
		}
	}
	return out, nil
}
