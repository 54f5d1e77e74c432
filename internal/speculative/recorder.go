package speculative

import (
	"math/big"
	"sync"
)

// Recorder validates the overlay's predictions: it holds the predicted
// post-confirm reserves per pending signature, compares them against the
// observed reserves once the transaction confirms, and tracks the
// fraction of samples landing within a basis-point tolerance over a
// sliding window.
type Recorder struct {
	mu           sync.Mutex
	toleranceBps uint32
	window       int
	samples      []bool
	next         int
	count        int
	pending      map[[64]byte][2]uint64
}

// NewRecorder constructs a Recorder with the given tolerance and sample
// window size.
func NewRecorder(toleranceBps uint32, window int) *Recorder {
	if window <= 0 {
		window = 1
	}
	return &Recorder{
		toleranceBps: toleranceBps,
		window:       window,
		samples:      make([]bool, window),
		pending:      make(map[[64]byte][2]uint64),
	}
}

// Predict records the reserves the overlay expects to observe once sig
// confirms.
func (r *Recorder) Predict(sig [64]byte, reserveA, reserveB uint64) {
	r.mu.Lock()
	r.pending[sig] = [2]uint64{reserveA, reserveB}
	r.mu.Unlock()
}

// Observe compares sig's prediction against the confirmed reserves and
// folds both sides into the accuracy window. Returns false when no
// prediction was recorded for sig.
func (r *Recorder) Observe(sig [64]byte, observedA, observedB uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	predicted, ok := r.pending[sig]
	if !ok {
		return false
	}
	delete(r.pending, sig)
	r.record(withinTolerance(predicted[0], observedA, r.toleranceBps))
	r.record(withinTolerance(predicted[1], observedB, r.toleranceBps))
	return true
}

// Forget drops sig's prediction without scoring it, used when the
// overlay expires the signature before it ever confirms.
func (r *Recorder) Forget(sig [64]byte) {
	r.mu.Lock()
	delete(r.pending, sig)
	r.mu.Unlock()
}

func (r *Recorder) record(accurate bool) {
	r.samples[r.next] = accurate
	r.next = (r.next + 1) % r.window
	if r.count < r.window {
		r.count++
	}
}

// Accuracy returns the fraction of window samples within tolerance and
// how many samples back it.
func (r *Recorder) Accuracy() (float64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return 0, 0
	}
	hits := 0
	for i := 0; i < r.count; i++ {
		if r.samples[i] {
			hits++
		}
	}
	return float64(hits) / float64(r.count), r.count
}

// withinTolerance reports |predicted - observed| <= observed *
// toleranceBps / 10000, in overflow-safe integer arithmetic.
func withinTolerance(predicted, observed uint64, toleranceBps uint32) bool {
	if predicted == observed {
		return true
	}
	if observed == 0 {
		return false
	}
	var diff uint64
	if predicted > observed {
		diff = predicted - observed
	} else {
		diff = observed - predicted
	}
	lhs := new(big.Int).Mul(new(big.Int).SetUint64(diff), big.NewInt(10000))
	rhs := new(big.Int).Mul(new(big.Int).SetUint64(observed), big.NewInt(int64(toleranceBps)))
	return lhs.Cmp(rhs) <= 0
}
