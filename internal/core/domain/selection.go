package domain

import "errors"

var (
	ErrDuplicateArtist = errors.New("domain: duplicate primary artist")
	ErrSelectionFull   = errors.New("domain: selection full")
)

// Selection is an ordered, size-bounded list of tracks in which no two tracks
// share a primary artist.
type Selection struct {
	Limit  int
	Tracks []Track
	seen   map[string]struct{}
}

// NewSelection returns an empty selection holding at most limit tracks.
func NewSelection(limit int) (*Selection, error) {
	if limit < 1 {
		return nil, errors.New("domain: invalid argument")
	}
	return &Selection{
		Limit:  limit,
		Tracks: make([]Track, 0, limit),
		seen:   make(map[string]struct{}, limit),
	}, nil
}

// Admits reports whether Add would accept t.
func (s *Selection) Admits(t Track) error {
	if s.Full() {
		return ErrSelectionFull
	}
	if _, ok := s.seen[t.Artist]; ok {
		return ErrDuplicateArtist
	}
	return nil
}

// Add appends t. It returns ErrDuplicateArtist when a track by the same
// primary artist is already selected and ErrSelectionFull once Limit is hit.
func (s *Selection) Add(t Track) error {
	if err := s.Admits(t); err != nil {
		return err
	}
	s.seen[t.Artist] = struct{}{}
	s.Tracks = append(s.Tracks, t)
	return nil
}

// Full reports whether the selection reached its limit.
func (s *Selection) Full() bool {
	return len(s.Tracks) >= s.Limit
}

// Len returns the number of selected tracks.
func (s *Selection) Len() int {
	return len(s.Tracks)
}
