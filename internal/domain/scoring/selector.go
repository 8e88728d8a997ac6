package scoring

// Selector keeps the best candidate seen so far.
//
// A candidate replaces the current best when it scores strictly higher. For
// past-preferring queries an equal score also replaces it when the candidate
// aired earlier. Offer reports true once a selected score reaches the
// good-enough threshold and the caller should stop.
type Selector struct {
	preferPast bool
	goodEnough float64

	offered   int
	first     int
	best      int
	bestScore float64
	bestCand  Candidate
	found     bool
}

// NewSelector creates a selector. A non-positive goodEnough uses DefaultGoodEnough.
func NewSelector(preferPast bool, goodEnough float64) *Selector {
	if goodEnough <= 0 {
		goodEnough = DefaultGoodEnough
	}
	return &Selector{
		preferPast: preferPast,
		goodEnough: goodEnough,
		bestScore:  -1,
	}
}

// Offer considers the candidate at position idx with its score result.
// The result's breakdown is marked when the earlier-airing tie-break applies.
func (s *Selector) Offer(idx int, c Candidate, r *Result) bool {
	if s.offered == 0 {
		s.first = idx
	}
	s.offered++

	update := false
	switch {
	case r.Score > s.bestScore:
		update = true
	case r.Score == s.bestScore && s.found && s.preferPast:
		if c.HasStart && s.bestCand.HasStart && c.Start < s.bestCand.Start {
			update = true
			r.Breakdown.EarlierAiring = true
		}
	}
	if !update {
		return false
	}

	s.best, s.bestScore, s.bestCand, s.found = idx, r.Score, c, true
	return r.Score >= s.goodEnough
}

// Best returns the selected position, falling back to the first offered
// candidate when none scored above the initial floor.
func (s *Selector) Best() (idx int, score float64, ok bool) {
	if s.found {
		return s.best, s.bestScore, true
	}
	if s.offered > 0 {
		return s.first, 0, true
	}
	return 0, 0, false
}
