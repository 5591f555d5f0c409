package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// SearchTracks runs a free-text track search.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	var body trackPage
	if err := c.getJSON(ctx, "search_tracks", "/search", searchQuery(query, "track", limit), &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}
	return mapTracks(body.Tracks.Items), nil
}

// SearchArtists runs a free-text artist search.
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) ([]domain.Artist, error) {
	var body artistPage
	if err := c.getJSON(ctx, "search_artists", "/search", searchQuery(query, "artist", limit), &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}
	return mapArtists(body.Artists.Items), nil
}

// SearchByGenre searches tracks with the genre filter, e.g. genre:"hip hop".
func (c *Client) SearchByGenre(ctx context.Context, genre string, limit int) ([]domain.Track, error) {
	var body trackPage
	q := searchQuery(fmt.Sprintf("genre:%q", genre), "track", limit)
	if err := c.getJSON(ctx, "search_genre", "/search", q, &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}
	return mapTracks(body.Tracks.Items), nil
}

func searchQuery(q, kind string, limit int) url.Values {
	v := url.Values{}
	v.Set("q", q)
	v.Set("type", kind)
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}
