package force

import "math"

// Link is one spring between two body ids.
type Link struct {
	Source   string
	Target   string
	Distance float64
	// Strength of zero derives 1/min(degree(source), degree(target)).
	Strength float64
}

// LinkForce pulls linked bodies toward their rest distance.
type LinkForce struct {
	links    []Link
	resolved []resolvedLink
	jiggle   func() float64
}

type resolvedLink struct {
	source   *Body
	target   *Body
	distance float64
	strength float64
	bias     float64
}

// NewLinkForce constructs a link force.
func NewLinkForce(links []Link) *LinkForce {
	return &LinkForce{links: links}
}

// Initialize implements Force. Links whose endpoints are missing are skipped.
func (f *LinkForce) Initialize(bodies []*Body, jiggle func() float64) {
	f.jiggle = jiggle
	byID := make(map[string]*Body, len(bodies))
	for _, b := range bodies {
		byID[b.ID] = b
	}
	degree := map[string]int{}
	for _, l := range f.links {
		if byID[l.Source] != nil && byID[l.Target] != nil {
			degree[l.Source]++
			degree[l.Target]++
		}
	}
	f.resolved = f.resolved[:0]
	for _, l := range f.links {
		src, tgt := byID[l.Source], byID[l.Target]
		if src == nil || tgt == nil {
			continue
		}
		ds, dt := float64(degree[l.Source]), float64(degree[l.Target])
		strength := l.Strength
		if strength <= 0 {
			strength = 1 / math.Min(ds, dt)
		}
		f.resolved = append(f.resolved, resolvedLink{
			source:   src,
			target:   tgt,
			distance: l.Distance,
			strength: strength,
			bias:     ds / (ds + dt),
		})
	}
}

// Apply implements Force.
func (f *LinkForce) Apply(alpha float64) {
	for _, l := range f.resolved {
		x := l.target.X + l.target.VX - l.source.X - l.source.VX
		y := l.target.Y + l.target.VY - l.source.Y - l.source.VY
		if x == 0 {
			x = f.jiggle()
		}
		if y == 0 {
			y = f.jiggle()
		}
		d := math.Hypot(x, y)
		k := (d - l.distance) / d * alpha * l.strength
		x *= k
		y *= k
		l.target.VX -= x * l.bias
		l.target.VY -= y * l.bias
		l.source.VX += x * (1 - l.bias)
		l.source.VY += y * (1 - l.bias)
	}
}

// ManyBody applies pairwise charge; negative strength repels.
type ManyBody struct {
	Strength    func(*Body) float64
	DistanceMin float64
	DistanceMax float64
	bodies      []*Body
	strengths   []float64
	jiggle      func() float64
}

// Initialize implements Force.
func (f *ManyBody) Initialize(bodies []*Body, jiggle func() float64) {
	f.bodies = bodies
	f.jiggle = jiggle
	f.strengths = make([]float64, len(bodies))
	for i, b := range bodies {
		if f.Strength != nil {
			f.strengths[i] = f.Strength(b)
		} else {
			f.strengths[i] = -30
		}
	}
}

// Apply implements Force.
func (f *ManyBody) Apply(alpha float64) {
	minSq := math.Max(f.DistanceMin, 1)
	minSq *= minSq
	maxSq := math.Inf(1)
	if f.DistanceMax > 0 {
		maxSq = f.DistanceMax * f.DistanceMax
	}
	for i, a := range f.bodies {
		for j, b := range f.bodies {
			if i == j {
				continue
			}
			x := b.X - a.X
			y := b.Y - a.Y
			l := x*x + y*y
			if l >= maxSq {
				continue
			}
			if x == 0 {
				x = f.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle()
				l += y * y
			}
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			w := f.strengths[j] * alpha / l
			a.VX += x * w
			a.VY += y * w
		}
	}
}

// Center shifts all bodies so their mean sits at X,Y.
type Center struct {
	X        float64
	Y        float64
	Strength float64
	bodies   []*Body
}

// Initialize implements Force.
func (f *Center) Initialize(bodies []*Body, _ func() float64) {
	f.bodies = bodies
}

// Apply implements Force.
func (f *Center) Apply(float64) {
	if len(f.bodies) == 0 {
		return
	}
	strength := f.Strength
	if strength <= 0 {
		strength = 1
	}
	sx, sy := 0.0, 0.0
	for _, b := range f.bodies {
		sx += b.X
		sy += b.Y
	}
	n := float64(len(f.bodies))
	sx = (sx/n - f.X) * strength
	sy = (sy/n - f.Y) * strength
	for _, b := range f.bodies {
		b.X -= sx
		b.Y -= sy
	}
}

// Collide keeps bodies at least radius(a)+radius(b) apart.
type Collide struct {
	Radius   func(*Body) float64
	Strength float64
	bodies   []*Body
	radii    []float64
	jiggle   func() float64
}

// Initialize implements Force.
func (f *Collide) Initialize(bodies []*Body, jiggle func() float64) {
	f.bodies = bodies
	f.jiggle = jiggle
	f.radii = make([]float64, len(bodies))
	for i, b := range bodies {
		if f.Radius != nil {
			f.radii[i] = math.Max(f.Radius(b), 0)
		} else {
			f.radii[i] = 1
		}
	}
}

// Apply implements Force.
func (f *Collide) Apply(float64) {
	strength := f.Strength
	if strength <= 0 {
		strength = 0.7
	}
	for i := 0; i < len(f.bodies); i++ {
		a := f.bodies[i]
		ra := f.radii[i]
		for j := i + 1; j < len(f.bodies); j++ {
			b := f.bodies[j]
			rb := f.radii[j]
			r := ra + rb
			x := a.X + a.VX - b.X - b.VX
			y := a.Y + a.VY - b.Y - b.VY
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = f.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle()
				l += y * y
			}
			d := math.Sqrt(l)
			k := (r - d) / d * strength
			x *= k
			y *= k
			share := 0.5
			if sum := ra*ra + rb*rb; sum > 0 {
				share = rb * rb / sum
			}
			a.VX += x * share
			a.VY += y * share
			b.VX -= x * (1 - share)
			b.VY -= y * (1 - share)
		}
	}
}
