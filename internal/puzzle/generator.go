package puzzle

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

const (
	// DefaultSize is the grid side used by the game.
	DefaultSize = 8

	// DefaultDistractors is the pool that fills cells off the path. Overlap
	// with segment characters is expected.
	DefaultDistractors = "天地玄黃宇宙洪荒日月盈昃辰宿列張寒來暑往秋收冬藏" +
		"人之初性本善相近習遠苟不教乃遷道可非常名無始有萬物母" +
		"學而時習說乎朋自方樂知慍君子山水風雲春花夜落多少"

	defaultMaxSteps    = 50000
	defaultMaxAttempts = 8
)

var (
	ErrEmptySegment   = errors.New("puzzle: empty segment")
	ErrSegmentTooLong = errors.New("puzzle: segment does not fit the grid")
	ErrPathGeneration = errors.New("puzzle: no path embedding found")
)

// directions is the Moore neighborhood.
var directions = [8]Coord{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
}

// Source supplies randomness to the generator. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedSource returns a Source safe for use by concurrent generators.
func NewLockedSource(seed int64) Source {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Options configures layout generation.
type Options struct {
	Size        int    // grid side N
	Distractors string // pool for non-path cells
	MaxSteps    int    // direction trials per attempt
	MaxAttempts int    // fresh starts before giving up
}

// DefaultOptions returns the game's standard settings.
func DefaultOptions() Options {
	return Options{
		Size:        DefaultSize,
		Distractors: DefaultDistractors,
		MaxSteps:    defaultMaxSteps,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Generator builds layouts. It is not safe for concurrent use unless its
// Source is.
type Generator struct {
	opts Options
	pool []rune
	rng  Source
}

// NewGenerator returns a Generator drawing from rng. Zero option fields take
// their defaults.
func NewGenerator(rng Source, opts Options) *Generator {
	def := DefaultOptions()
	if opts.Size < 1 {
		opts.Size = def.Size
	}
	if opts.Distractors == "" {
		opts.Distractors = def.Distractors
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	return &Generator{opts: opts, pool: []rune(opts.Distractors), rng: rng}
}

// Options returns the effective settings.
func (g *Generator) Options() Options { return g.opts }

// Generate embeds segment as a self-avoiding king-move path starting near the
// grid center and fills the remaining cells with distractors.
func (g *Generator) Generate(segment string) (*Layout, error) {
	runes := []rune(segment)
	n := g.opts.Size
	if len(runes) == 0 {
		return nil, ErrEmptySegment
	}
	if len(runes) > n*n {
		return nil, fmt.Errorf("%w: %d characters on a %dx%d grid", ErrSegmentTooLong, len(runes), n, n)
	}

	for range g.opts.MaxAttempts {
		path, ok := g.walk(g.pickStart(), len(runes))
		if !ok {
			continue
		}
		return build(n, runes, path, g.distractor), nil
	}
	return nil, fmt.Errorf("%w: %d attempts of %d steps", ErrPathGeneration, g.opts.MaxAttempts, g.opts.MaxSteps)
}

// pickStart chooses a cell of the central block (2×2 on even grids).
func (g *Generator) pickStart() Coord {
	lo := (g.opts.Size - 1) / 2
	span := g.opts.Size/2 - lo + 1
	return Coord{Row: lo + g.rng.Intn(span), Col: lo + g.rng.Intn(span)}
}

type frame struct {
	at   Coord
	dirs [8]int
	next int
}

func (g *Generator) newFrame(at Coord) frame {
	f := frame{at: at}
	for i := range f.dirs {
		f.dirs[i] = i
	}
	for i := len(f.dirs) - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		f.dirs[i], f.dirs[j] = f.dirs[j], f.dirs[i]
	}
	return f
}

// walk runs the backtracking search with an explicit stack. The stack holds
// one frame per placed character, so its depth never exceeds length.
func (g *Generator) walk(start Coord, length int) ([]Coord, bool) {
	n := g.opts.Size
	visited := make([]bool, n*n)
	visited[start.Row*n+start.Col] = true

	stack := make([]frame, 0, length)
	stack = append(stack, g.newFrame(start))
	steps := 0

	for len(stack) < length {
		top := &stack[len(stack)-1]
		if top.next == len(top.dirs) {
			visited[top.at.Row*n+top.at.Col] = false
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return nil, false
			}
			continue
		}
		if steps == g.opts.MaxSteps {
			return nil, false
		}
		steps++

		d := directions[top.dirs[top.next]]
		top.next++
		nb := Coord{Row: top.at.Row + d.Row, Col: top.at.Col + d.Col}
		if nb.Row < 0 || nb.Row >= n || nb.Col < 0 || nb.Col >= n || visited[nb.Row*n+nb.Col] {
			continue
		}
		visited[nb.Row*n+nb.Col] = true
		stack = append(stack, g.newFrame(nb))
	}

	path := make([]Coord, length)
	for i, f := range stack {
		path[i] = f.at
	}
	return path, true
}

func (g *Generator) distractor() rune {
	return g.pool[g.rng.Intn(len(g.pool))]
}
