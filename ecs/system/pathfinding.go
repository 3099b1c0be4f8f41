package system

import (
	"container/heap"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

const defaultNavCellSize = 0.5

type gridPos struct {
	x, y int
}

// NavGrid is a walkability grid over the ground plane. Grid x follows world
// X and grid y follows world Z.
type NavGrid struct {
	Min      mgl64.Vec3
	CellSize float64
	Width    int
	Height   int

	blocked []bool
}

// NewNavGrid rasterises obstacles, grown by clearance, into a grid covering
// bounds (world X/Z mapped to the box's X/Y).
func NewNavGrid(bounds cp.BB, cellSize, clearance float64, obstacles []cp.BB) *NavGrid {
	if cellSize <= 0 {
		cellSize = defaultNavCellSize
	}
	gridW := int(math.Ceil((bounds.R - bounds.L) / cellSize))
	gridH := int(math.Ceil((bounds.T - bounds.B) / cellSize))
	if gridW < 1 {
		gridW = 1
	}
	if gridH < 1 {
		gridH = 1
	}
	g := &NavGrid{
		Min:      mgl64.Vec3{bounds.L, 0, bounds.B},
		CellSize: cellSize,
		Width:    gridW,
		Height:   gridH,
		blocked:  make([]bool, gridW*gridH),
	}
	for _, bb := range obstacles {
		g.block(bb.L-clearance, bb.B-clearance, bb.R+clearance, bb.T+clearance)
	}
	return g
}

func (g *NavGrid) block(minX, minZ, maxX, maxZ float64) {
	startX := int(math.Floor((minX - g.Min.X()) / g.CellSize))
	startY := int(math.Floor((minZ - g.Min.Z()) / g.CellSize))
	endX := int(math.Floor((maxX - g.Min.X() - 0.001) / g.CellSize))
	endY := int(math.Floor((maxZ - g.Min.Z() - 0.001) / g.CellSize))

	if startX < 0 {
		startX = 0
	}
	if startY < 0 {
		startY = 0
	}
	if endX >= g.Width {
		endX = g.Width - 1
	}
	if endY >= g.Height {
		endY = g.Height - 1
	}
	for y := startY; y <= endY; y++ {
		for x := startX; x <= endX; x++ {
			g.blocked[y*g.Width+x] = true
		}
	}
}

func (g *NavGrid) cell(p mgl64.Vec3) gridPos {
	gx := int(math.Floor((p.X() - g.Min.X()) / g.CellSize))
	gy := int(math.Floor((p.Z() - g.Min.Z()) / g.CellSize))
	if gx < 0 {
		gx = 0
	}
	if gy < 0 {
		gy = 0
	}
	if gx >= g.Width {
		gx = g.Width - 1
	}
	if gy >= g.Height {
		gy = g.Height - 1
	}
	return gridPos{x: gx, y: gy}
}

func (g *NavGrid) center(c gridPos) mgl64.Vec3 {
	half := g.CellSize * 0.5
	return mgl64.Vec3{
		g.Min.X() + float64(c.x)*g.CellSize + half,
		0,
		g.Min.Z() + float64(c.y)*g.CellSize + half,
	}
}

func (g *NavGrid) inside(p mgl64.Vec3) bool {
	return p.X() >= g.Min.X() && p.Z() >= g.Min.Z() &&
		p.X() < g.Min.X()+float64(g.Width)*g.CellSize &&
		p.Z() < g.Min.Z()+float64(g.Height)*g.CellSize
}

// Walkable reports whether p lies on a free cell inside the grid.
func (g *NavGrid) Walkable(p mgl64.Vec3) bool {
	if !g.inside(p) {
		return false
	}
	c := g.cell(p)
	return !g.blocked[c.y*g.Width+c.x]
}

// Nearest returns the centre of the free cell closest to p within radius.
func (g *NavGrid) Nearest(p mgl64.Vec3, radius float64) (mgl64.Vec3, bool) {
	if g.Walkable(p) {
		return mgl64.Vec3{p.X(), 0, p.Z()}, true
	}
	origin := g.cell(p)
	rings := int(math.Ceil(radius / g.CellSize))
	best, bestDist := mgl64.Vec3{}, math.Inf(1)
	for r := 0; r <= rings; r++ {
		for y := origin.y - r; y <= origin.y+r; y++ {
			for x := origin.x - r; x <= origin.x+r; x++ {
				if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
					continue
				}
				if g.blocked[y*g.Width+x] {
					continue
				}
				c := g.center(gridPos{x: x, y: y})
				d := flatDistance(c, p)
				if d <= radius && d < bestDist {
					best, bestDist = c, d
				}
			}
		}
		if bestDist < math.Inf(1) {
			return best, true
		}
	}
	return mgl64.Vec3{}, false
}

// Path plans a route from start to goal. The result excludes start and ends
// exactly at goal when goal is walkable.
func (g *NavGrid) Path(start, goal mgl64.Vec3) ([]mgl64.Vec3, bool) {
	if !g.inside(goal) {
		return nil, false
	}
	s, t := g.cell(start), g.cell(goal)
	blocked := g.blocked
	if blocked[s.y*g.Width+s.x] {
		// an agent pushed against a wall still gets out
		blocked = append([]bool(nil), g.blocked...)
		blocked[s.y*g.Width+s.x] = false
	}
	cells, _ := astarPath(s, t, blocked, g.Width, g.Height)
	if len(cells) == 0 {
		return nil, false
	}
	cells = simplify(cells)

	out := make([]mgl64.Vec3, 0, len(cells))
	for i, c := range cells {
		if i == 0 && len(cells) > 1 {
			continue
		}
		if i == len(cells)-1 {
			out = append(out, mgl64.Vec3{goal.X(), 0, goal.Z()})
			continue
		}
		out = append(out, g.center(c))
	}
	return out, true
}

// simplify keeps only the cells where the path changes direction.
func simplify(path []gridPos) []gridPos {
	if len(path) < 3 {
		return path
	}
	out := []gridPos{path[0]}
	for i := 1; i < len(path)-1; i++ {
		dx0, dy0 := path[i].x-path[i-1].x, path[i].y-path[i-1].y
		dx1, dy1 := path[i+1].x-path[i].x, path[i+1].y-path[i].y
		if dx0 != dx1 || dy0 != dy1 {
			out = append(out, path[i])
		}
	}
	return append(out, path[len(path)-1])
}

func astarPath(start, goal gridPos, blocked []bool, gridW, gridH int) ([]gridPos, []gridPos) {
	if start.x < 0 || start.y < 0 || goal.x < 0 || goal.y < 0 {
		return nil, nil
	}
	if start.x >= gridW || start.y >= gridH || goal.x >= gridW || goal.y >= gridH {
		return nil, nil
	}
	if blocked[start.y*gridW+start.x] || blocked[goal.y*gridW+goal.x] {
		return nil, nil
	}

	open := &openSet{}
	heap.Init(open)

	cameFrom := make([]int, gridW*gridH)
	for i := range cameFrom {
		cameFrom[i] = -1
	}
	gScore := make([]float64, gridW*gridH)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	startIdx := start.y*gridW + start.x
	goalIdx := goal.y*gridW + goal.x
	gScore[startIdx] = 0
	heap.Push(open, &openItem{pos: start, f: heuristic(start, goal), g: 0})

	visited := make([]gridPos, 0, 64)

	for open.Len() > 0 {
		current := heap.Pop(open).(*openItem)
		cur := current.pos
		curIdx := cur.y*gridW + cur.x
		if current.g > gScore[curIdx] {
			continue
		}

		visited = append(visited, cur)

		if curIdx == goalIdx {
			return reconstructPath(cameFrom, gridW, startIdx, goalIdx), visited
		}

		for _, n := range neighbors(cur, gridW, gridH) {
			idx := n.y*gridW + n.x
			if blocked[idx] {
				continue
			}
			tentativeG := gScore[curIdx] + 1
			if tentativeG < gScore[idx] {
				cameFrom[idx] = curIdx
				gScore[idx] = tentativeG
				f := tentativeG + heuristic(n, goal)
				heap.Push(open, &openItem{pos: n, f: f, g: tentativeG})
			}
		}
	}

	return nil, visited
}

func reconstructPath(cameFrom []int, gridW int, startIdx, goalIdx int) []gridPos {
	if startIdx == goalIdx {
		return []gridPos{{x: startIdx % gridW, y: startIdx / gridW}}
	}
	if goalIdx < 0 || goalIdx >= len(cameFrom) || cameFrom[goalIdx] == -1 {
		return nil
	}

	path := make([]gridPos, 0, 32)
	cur := goalIdx
	for cur != -1 {
		path = append(path, gridPos{x: cur % gridW, y: cur / gridW})
		if cur == startIdx {
			break
		}
		cur = cameFrom[cur]
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func neighbors(p gridPos, gridW, gridH int) []gridPos {
	out := make([]gridPos, 0, 4)
	if p.x > 0 {
		out = append(out, gridPos{x: p.x - 1, y: p.y})
	}
	if p.x < gridW-1 {
		out = append(out, gridPos{x: p.x + 1, y: p.y})
	}
	if p.y > 0 {
		out = append(out, gridPos{x: p.x, y: p.y - 1})
	}
	if p.y < gridH-1 {
		out = append(out, gridPos{x: p.x, y: p.y + 1})
	}
	return out
}

func heuristic(a, b gridPos) float64 {
	return math.Abs(float64(a.x-b.x)) + math.Abs(float64(a.y-b.y))
}

type openItem struct {
	pos   gridPos
	f     float64
	g     float64
	index int
}

type openSet []*openItem

func (o openSet) Len() int           { return len(o) }
func (o openSet) Less(i, j int) bool { return o[i].f < o[j].f }
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*o = old[:n-1]
	return item
}
