// Package pathing finds weighted 8-connected routes over an abstract cost grid.
package pathing

import (
	"tilesim.dev/internal/sim/world/logic/line"
	"tilesim.dev/internal/sim/world/logic/mathx"
)

type Pos struct {
	X int
	Y int
}

// Dirs lists the eight neighbor offsets clockwise starting north.
var Dirs = [8]Pos{
	{X: 0, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 0}, {X: 1, Y: 1},
	{X: 0, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: 0}, {X: -1, Y: -1},
}

// Grid is the view of the world the search needs.
type Grid struct {
	InBounds func(x, y int) bool
	// MoveCost is 0 for impassable cells.
	MoveCost func(x, y int) int
	// BashRating is the chance rating (1..10) of breaking through (x, y) with
	// the given strength, or <= 0 when it cannot be bashed. May be nil.
	BashRating func(str, x, y int) int
}

type Options struct {
	// Bash is the strength the traveler may use on impassable cells. 0 disables bashing.
	Bash int
	// Straight and Diagonal scale each step's move cost by direction.
	Straight int
	Diagonal int
	// BashPenalty is added to a bashable cell's cost, divided by its rating.
	BashPenalty int
	// MinCost is the cheapest passable move cost; it scales the heuristic.
	MinCost int
	// MaxExpansions caps popped nodes. 0 means unlimited.
	MaxExpansions int
	// Box limits the search when Box.Set is true.
	Box Box
}

// Box is an inclusive search rectangle.
type Box struct {
	Set        bool
	MinX, MinY int
	MaxX, MaxY int
}

func (b Box) contains(x, y int) bool {
	return !b.Set || (x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY)
}

// BoxAround returns the rectangle spanning a and b grown by margin.
func BoxAround(a, b Pos, margin int) Box {
	return Box{
		Set:  true,
		MinX: min(a.X, b.X) - margin,
		MinY: min(a.Y, b.Y) - margin,
		MaxX: max(a.X, b.X) + margin,
		MaxY: max(a.Y, b.Y) + margin,
	}
}

func (o *Options) applyDefaults() {
	if o.Straight <= 0 {
		o.Straight = 10
	}
	if o.Diagonal <= 0 {
		o.Diagonal = 14
	}
	if o.MinCost <= 0 {
		o.MinCost = 1
	}
}

type node struct {
	g, h   int
	parent int
	closed bool
	opened bool
}

type entry struct {
	idx  int
	f, h int
	rank int
	seq  int
}

func (a entry) less(b entry) bool {
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.seq < b.seq
}

type openHeap []entry

func (h *openHeap) push(e entry) {
	*h = append(*h, e)
	i := len(*h) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !(*h)[i].less((*h)[parent]) {
			break
		}
		(*h)[parent], (*h)[i] = (*h)[i], (*h)[parent]
		i = parent
	}
}

func (h *openHeap) pop() entry {
	old := *h
	n := len(old)
	e := old[0]
	old[0] = old[n-1]
	*h = old[:n-1]

	i := 0
	for {
		left := 2*i + 1
		if left >= len(*h) {
			break
		}
		smallest := left
		if right := left + 1; right < len(*h) && (*h)[right].less((*h)[left]) {
			smallest = right
		}
		if !(*h)[smallest].less((*h)[i]) {
			break
		}
		(*h)[i], (*h)[smallest] = (*h)[smallest], (*h)[i]
		i = smallest
	}
	return e
}

// Route returns the cells from (excluded) to to (included), or nil when no
// route exists within the options' limits. The destination cell is always
// enterable so callers can path onto an occupied or solid target.
func Route(g Grid, from, to Pos, opt Options) []Pos {
	if from == to {
		return nil
	}
	if !g.InBounds(from.X, from.Y) || !g.InBounds(to.X, to.Y) {
		return nil
	}
	opt.applyDefaults()

	nodes := make(map[Pos]int, 256)
	store := make([]node, 0, 256)
	posOf := make([]Pos, 0, 256)
	get := func(p Pos) int {
		if i, ok := nodes[p]; ok {
			return i
		}
		i := len(store)
		store = append(store, node{parent: -1})
		posOf = append(posOf, p)
		nodes[p] = i
		return i
	}

	heuristic := func(p Pos) int {
		return mathx.Octile(p.X, p.Y, to.X, to.Y, opt.Straight*opt.MinCost, opt.Diagonal*opt.MinCost)
	}

	open := openHeap{}
	seq := 0
	start := get(from)
	store[start].h = heuristic(from)
	store[start].opened = true
	open.push(entry{idx: start, f: store[start].h, h: store[start].h})

	expansions := 0
	for len(open) > 0 {
		e := open.pop()
		cur := &store[e.idx]
		if cur.closed || e.f != cur.g+cur.h {
			continue
		}
		cur.closed = true
		p := posOf[e.idx]
		if p == to {
			return unwind(store, posOf, e.idx)
		}
		expansions++
		if opt.MaxExpansions > 0 && expansions > opt.MaxExpansions {
			return nil
		}

		curG := cur.g
		for rank, d := range DirCircle(p, to) {
			np := Pos{X: p.X + d.X, Y: p.Y + d.Y}
			if !g.InBounds(np.X, np.Y) || !opt.Box.contains(np.X, np.Y) {
				continue
			}
			cost, ok := stepCost(g, opt, np, to)
			if !ok {
				continue
			}
			if d.X != 0 && d.Y != 0 {
				cost *= opt.Diagonal
			} else {
				cost *= opt.Straight
			}
			ni := get(np)
			n := &store[ni]
			if n.closed {
				continue
			}
			ng := curG + cost
			if n.opened && ng >= n.g {
				continue
			}
			n.g = ng
			n.h = heuristic(np)
			n.parent = e.idx
			n.opened = true
			seq++
			open.push(entry{idx: ni, f: ng + n.h, h: n.h, rank: rank, seq: seq})
		}
	}
	return nil
}

func stepCost(g Grid, opt Options, p, to Pos) (int, bool) {
	cost := g.MoveCost(p.X, p.Y)
	if cost > 0 {
		return cost, true
	}
	if p == to {
		return opt.MinCost, true
	}
	if opt.Bash <= 0 || g.BashRating == nil {
		return 0, false
	}
	rating := g.BashRating(opt.Bash, p.X, p.Y)
	if rating <= 0 {
		return 0, false
	}
	return 2 + opt.BashPenalty/rating, true
}

func unwind(store []node, posOf []Pos, idx int) []Pos {
	n := 0
	for i := idx; store[i].parent >= 0; i = store[i].parent {
		n++
	}
	out := make([]Pos, n)
	for i := idx; store[i].parent >= 0; i = store[i].parent {
		n--
		out[n] = posOf[i]
	}
	return out
}

// DirCircle orders the eight neighbor offsets of from by how closely they
// follow the line toward to: the line's first step, then alternating
// clockwise and counterclockwise neighbors, ending with the opposite step.
func DirCircle(from, to Pos) [8]Pos {
	first := 0
	if from != to {
		step := line.To(from.X, from.Y, to.X, to.Y, 0)[0]
		d := Pos{X: step.X - from.X, Y: step.Y - from.Y}
		for i, dd := range Dirs {
			if dd == d {
				first = i
				break
			}
		}
	}
	var out [8]Pos
	out[0] = Dirs[first]
	k := 1
	for off := 1; off <= 4; off++ {
		out[k] = Dirs[(first+off)%8]
		k++
		if off == 4 {
			break
		}
		out[k] = Dirs[(first-off+8)%8]
		k++
	}
	return out
}
