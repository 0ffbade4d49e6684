package collision

// Collector decides what a query keeps. Queries only offer hits whose fraction does
// not exceed MaxFraction, and stop once EarlyOutOnFirstHit is set and a hit landed.
type Collector[T Hit] interface {
	EarlyOutOnFirstHit() bool
	MaxFraction() float64
	NumHits() int
	// AddHit offers a hit and reports whether it was kept.
	AddHit(hit T) bool
}

// AnyHitCollector stops at the first hit.
type AnyHitCollector[T Hit] struct {
	maxFraction float64
	numHits     int
}

func NewAnyHitCollector[T Hit](maxFraction float64) *AnyHitCollector[T] {
	return &AnyHitCollector[T]{maxFraction: maxFraction}
}

func (c *AnyHitCollector[T]) EarlyOutOnFirstHit() bool { return true }
func (c *AnyHitCollector[T]) MaxFraction() float64     { return c.maxFraction }
func (c *AnyHitCollector[T]) NumHits() int             { return c.numHits }

func (c *AnyHitCollector[T]) AddHit(hit T) bool {
	if hit.HitFraction() > c.maxFraction {
		return false
	}
	c.numHits = 1
	return true
}

// ClosestHitCollector keeps the hit with the smallest fraction and shrinks MaxFraction
// to it so later candidates are pruned.
type ClosestHitCollector[T Hit] struct {
	maxFraction float64
	numHits     int
	closest     T
}

func NewClosestHitCollector[T Hit](maxFraction float64) *ClosestHitCollector[T] {
	return &ClosestHitCollector[T]{maxFraction: maxFraction}
}

func (c *ClosestHitCollector[T]) EarlyOutOnFirstHit() bool { return false }
func (c *ClosestHitCollector[T]) MaxFraction() float64     { return c.maxFraction }
func (c *ClosestHitCollector[T]) NumHits() int             { return c.numHits }
func (c *ClosestHitCollector[T]) ClosestHit() T            { return c.closest }

func (c *ClosestHitCollector[T]) AddHit(hit T) bool {
	f := hit.HitFraction()
	if f > c.maxFraction || (c.numHits > 0 && f == c.maxFraction) {
		return false
	}
	c.maxFraction = f
	c.closest = hit
	c.numHits = 1
	return true
}

// AllHitsCollector appends every hit to a caller-owned slice.
type AllHitsCollector[T Hit] struct {
	maxFraction float64
	hits        *[]T
	start       int
}

func NewAllHitsCollector[T Hit](maxFraction float64, hits *[]T) *AllHitsCollector[T] {
	if hits == nil {
		hits = new([]T)
	}
	return &AllHitsCollector[T]{maxFraction: maxFraction, hits: hits, start: len(*hits)}
}

func (c *AllHitsCollector[T]) EarlyOutOnFirstHit() bool { return false }
func (c *AllHitsCollector[T]) MaxFraction() float64     { return c.maxFraction }
func (c *AllHitsCollector[T]) NumHits() int             { return len(*c.hits) - c.start }

// Hits returns the hits gathered by this collector.
func (c *AllHitsCollector[T]) Hits() []T { return (*c.hits)[c.start:] }

func (c *AllHitsCollector[T]) AddHit(hit T) bool {
	if hit.HitFraction() > c.maxFraction {
		return false
	}
	*c.hits = append(*c.hits, hit)
	return true
}
