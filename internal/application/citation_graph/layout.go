package citation_graph

import (
	"context"
	"math"
	"math/rand"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
)

// Point is a 2-D layout coordinate.
type Point struct {
	X float64
	Y float64
}

// LayoutOptions tune the spring embedding.
type LayoutOptions struct {
	Iterations int
	Seed       int64
	Scale      float64
	// Threshold stops the run once the mean node displacement of an
	// iteration falls below it.
	Threshold float64
}

// LayoutResult carries the final positions and how the run ended.
type LayoutResult struct {
	Positions  map[string]Point
	Iterations int
	Converged  bool
}

const (
	defaultLayoutThreshold = 1e-4
	minDistance            = 0.01
)

// SpringLayout positions the nodes of g with the Fruchterman-Reingold force
// model: every pair repels with k²/d, every edge attracts with w·d²/k, and the
// step size cools linearly from a tenth of the initial spread.  Initial
// positions are drawn from a RNG seeded with opts.Seed over nodes in ID order,
// so equal graphs and seeds give equal layouts.  The run stops early on
// convergence or when ctx is done; a deadline keeps the positions reached so
// far, cancellation is returned as an error.  Final positions are centred on
// the origin and scaled so the largest coordinate magnitude equals
// opts.Scale.
func SpringLayout(ctx context.Context, g *citation.Graph, opts LayoutOptions) (LayoutResult, error) {
	ids := g.NodeIDs()
	n := len(ids)
	res := LayoutResult{Positions: make(map[string]Point, n)}
	switch n {
	case 0:
		res.Converged = true
		return res, nil
	case 1:
		res.Positions[ids[0]] = Point{}
		res.Converged = true
		return res, nil
	}
	if opts.Threshold <= 0 {
		opts.Threshold = defaultLayoutThreshold
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		index[id] = i
	}
	weights := make([][]float64, n)
	for i := range weights {
		weights[i] = make([]float64, n)
	}
	for _, e := range g.Edges() {
		a, b := index[e.Key.A], index[e.Key.B]
		weights[a][b] = float64(e.Weight)
		weights[b][a] = float64(e.Weight)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	pos := make([]Point, n)
	for i := range pos {
		pos[i] = Point{X: rng.Float64(), Y: rng.Float64()}
	}

	k := math.Sqrt(1.0 / float64(n))
	temp := 0.1 * spread(pos)
	dt := temp / float64(opts.Iterations+1)
	disp := make([]Point, n)

	for it := 0; it < opts.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			if err == context.Canceled {
				return LayoutResult{}, err
			}
			break
		}
		res.Iterations = it + 1

		for i := range disp {
			disp[i] = Point{}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				dx := pos[i].X - pos[j].X
				dy := pos[i].Y - pos[j].Y
				d := math.Max(math.Hypot(dx, dy), minDistance)
				f := k*k/(d*d) - weights[i][j]*d/k
				disp[i].X += dx * f
				disp[i].Y += dy * f
			}
		}

		moved := 0.0
		for i := range pos {
			l := math.Hypot(disp[i].X, disp[i].Y)
			if l < minDistance {
				l = 0.1
			}
			sx := disp[i].X * temp / l
			sy := disp[i].Y * temp / l
			pos[i].X += sx
			pos[i].Y += sy
			moved += sx*sx + sy*sy
		}
		temp -= dt
		if math.Sqrt(moved)/float64(n) < opts.Threshold {
			res.Converged = true
			break
		}
	}

	rescale(pos, opts.Scale)
	for i, id := range ids {
		res.Positions[id] = pos[i]
	}
	return res, nil
}

// spread is the larger side of the bounding box of pos.
func spread(pos []Point) float64 {
	minX, maxX := pos[0].X, pos[0].X
	minY, maxY := pos[0].Y, pos[0].Y
	for _, p := range pos[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return math.Max(maxX-minX, maxY-minY)
}

// rescale centres pos on the origin and scales it into [-scale, scale].
func rescale(pos []Point, scale float64) {
	var cx, cy float64
	for _, p := range pos {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pos))
	cy /= float64(len(pos))

	lim := 0.0
	for i := range pos {
		pos[i].X -= cx
		pos[i].Y -= cy
		lim = math.Max(lim, math.Max(math.Abs(pos[i].X), math.Abs(pos[i].Y)))
	}
	if lim == 0 {
		return
	}
	for i := range pos {
		pos[i].X *= scale / lim
		pos[i].Y *= scale / lim
	}
}
