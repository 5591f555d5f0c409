package spotify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// RelatedArtists returns the artists Spotify considers similar to artistID.
func (c *Client) RelatedArtists(ctx context.Context, artistID string) ([]domain.Artist, error) {
	var body struct {
		Artists []spotifyArtist `json:"artists"`
	}
	path := fmt.Sprintf("/artists/%s/related-artists", url.PathEscape(artistID))
	if err := c.getJSON(ctx, "related_artists", path, nil, &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}
	return mapArtists(body.Artists), nil
}

// ArtistTopTracks returns up to 10 top tracks of an artist in the client's market.
func (c *Client) ArtistTopTracks(ctx context.Context, artistID string) ([]domain.Track, error) {
	var body struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	path := fmt.Sprintf("/artists/%s/top-tracks", url.PathEscape(artistID))
	if err := c.getJSON(ctx, "top_tracks", path, url.Values{"market": {c.market}}, &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}
	return mapTracks(body.Tracks), nil
}
