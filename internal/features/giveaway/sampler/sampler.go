// Package sampler draws one identity from a weighted population.
package sampler

import "gtm-backend/internal/utils/random"

// Entry is one identity and its ticket weight.
type Entry struct {
	ID     int64
	Weight int
}

type Sampler struct {
	src random.Source
}

func New(src random.Source) *Sampler {
	if src == nil {
		src = random.Crypto()
	}
	return &Sampler{src: src}
}

// Draw picks r uniformly in [1, total] and returns the first entry whose
// cumulative weight reaches r. Entries with weight <= 0 never win. The
// second result is false when the total weight is zero. pop is not modified.
func (s *Sampler) Draw(pop []Entry) (int64, bool) {
	var total int64
	for _, e := range pop {
		if e.Weight > 0 {
			total += int64(e.Weight)
		}
	}
	if total == 0 {
		return 0, false
	}

	r := s.src.Int63n(total) + 1
	var cum int64
	for _, e := range pop {
		if e.Weight <= 0 {
			continue
		}
		cum += int64(e.Weight)
		if cum >= r {
			return e.ID, true
		}
	}
	// unreachable: cum == total >= r after the loop
	return 0, false
}
