// Package memory owns the process-wide mutable stores: the accumulated
// preference profile and the per-genre history of shown tracks.
package memory

import (
	"slices"
	"strings"
	"sync"
)

// Profile is a point-in-time copy of the preference store.
type Profile struct {
	Genres     []string `json:"genres"`
	LikedSongs []string `json:"liked_songs"`
}

// Preferences accumulates genres and liked song ids. It only grows.
type Preferences struct {
	mu     sync.RWMutex
	genres map[string]struct{}
	liked  map[string]struct{}
}

// NewPreferences returns an empty store.
func NewPreferences() *Preferences {
	return &Preferences{
		genres: make(map[string]struct{}),
		liked:  make(map[string]struct{}),
	}
}

// AddGenres records genres, lowercased and trimmed. It returns how many were new.
func (p *Preferences) AddGenres(genres ...string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, g := range genres {
		g = normalizeKey(g)
		if g == "" {
			continue
		}
		if _, ok := p.genres[g]; ok {
			continue
		}
		p.genres[g] = struct{}{}
		added++
	}
	return added
}

// AddLikedSong records a liked track id. It reports whether the id was new.
func (p *Preferences) AddLikedSong(trackID string) bool {
	if trackID == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.liked[trackID]; ok {
		return false
	}
	p.liked[trackID] = struct{}{}
	return true
}

// Snapshot copies the store with both sets sorted.
func (p *Preferences) Snapshot() Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Profile{
		Genres:     sortedKeys(p.genres),
		LikedSongs: sortedKeys(p.liked),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
