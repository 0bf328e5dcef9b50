package meanshift

import "math/rand"

// Reservoir accumulates unassigned sequence records across successive
// blocks of a large, multi-pass mean-shift run, and hands a shuffled
// prefix back to the caller on demand so each fresh sub-clustering run
// sees a representative mix rather than whatever arrived most recently.
type Reservoir struct {
	headers  []string
	kHist    [][]int64
	monoHist [][]uint64
	lengths  []int
	rng      *rand.Rand
}

// NewReservoir builds an empty reservoir. seed fixes the shuffle sequence
// so a run is reproducible given the same input and block sizes.
func NewReservoir(seed int64) *Reservoir {
	return &Reservoir{rng: rand.New(rand.NewSource(seed))}
}

// Add appends a batch of unassigned points to the reservoir.
func (r *Reservoir) Add(u *UnassignedData) {
	r.headers = append(r.headers, u.Headers...)
	r.kHist = append(r.kHist, u.KHist...)
	r.monoHist = append(r.monoHist, u.MonoHist...)
	r.lengths = append(r.lengths, u.Lengths...)
}

// Size reports how many points the reservoir currently holds.
func (r *Reservoir) Size() int { return len(r.headers) }

// shuffle randomizes the reservoir's internal order in place.
func (r *Reservoir) shuffle() {
	n := len(r.headers)
	r.rng.Shuffle(n, func(i, j int) {
		r.headers[i], r.headers[j] = r.headers[j], r.headers[i]
		r.kHist[i], r.kHist[j] = r.kHist[j], r.kHist[i]
		r.monoHist[i], r.monoHist[j] = r.monoHist[j], r.monoHist[i]
		r.lengths[i], r.lengths[j] = r.lengths[j], r.lengths[i]
	})
}

// Remove shuffles the reservoir, then pops off up to n points (fewer if
// the reservoir holds less), returning them as a fresh Block.
func (r *Reservoir) Remove(n int) *Block {
	r.shuffle()

	if n > len(r.headers) {
		n = len(r.headers)
	}

	b := &Block{
		Headers:  append([]string(nil), r.headers[:n]...),
		KHist:    append([][]int64(nil), r.kHist[:n]...),
		MonoHist: append([][]uint64(nil), r.monoHist[:n]...),
		Lengths:  append([]int(nil), r.lengths[:n]...),
	}

	r.headers = r.headers[n:]
	r.kHist = r.kHist[n:]
	r.monoHist = r.monoHist[n:]
	r.lengths = r.lengths[n:]

	return b
}
