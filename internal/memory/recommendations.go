package memory

import (
	"slices"
	"sync"
)

// Recommendations remembers, per genre, every track id already shown. Each
// genre bucket has its own lock so concurrent sessions browsing different
// genres do not contend, while two invocations for the same genre are
// serialized and cannot both claim one id.
type Recommendations struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	mu    sync.Mutex
	shown map[string]struct{}
	order []string
}

// Ledger is the view of one genre bucket handed to WithGenre callbacks. It is
// only valid inside the callback.
type Ledger struct {
	b *bucket
}

// Seen reports whether trackID was already shown for the genre.
func (l Ledger) Seen(trackID string) bool {
	_, ok := l.b.shown[trackID]
	return ok
}

// Record marks trackID as shown. It reports false if it already was.
func (l Ledger) Record(trackID string) bool {
	if l.Seen(trackID) {
		return false
	}
	l.b.shown[trackID] = struct{}{}
	l.b.order = append(l.b.order, trackID)
	return true
}

// NewRecommendations returns an empty store.
func NewRecommendations() *Recommendations {
	return &Recommendations{buckets: make(map[string]*bucket)}
}

func (r *Recommendations) bucket(genre string) *bucket {
	genre = normalizeKey(genre)

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[genre]
	if !ok {
		b = &bucket{shown: make(map[string]struct{})}
		r.buckets[genre] = b
	}
	return b
}

// WithGenre runs fn holding the genre's lock. Check-then-record sequences
// must happen inside a single callback.
func (r *Recommendations) WithGenre(genre string, fn func(Ledger)) {
	b := r.bucket(genre)
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(Ledger{b: b})
}

// Record marks one id as shown for genre.
func (r *Recommendations) Record(genre, trackID string) bool {
	var added bool
	r.WithGenre(genre, func(l Ledger) { added = l.Record(trackID) })
	return added
}

// Shown returns the ids shown for genre in the order they were recorded.
func (r *Recommendations) Shown(genre string) []string {
	var out []string
	r.WithGenre(genre, func(l Ledger) { out = slices.Clone(l.b.order) })
	return out
}

// Genres lists every genre with a bucket, sorted.
func (r *Recommendations) Genres() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.buckets))
	for g := range r.buckets {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}
