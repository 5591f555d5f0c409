package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// maxFeaturesBatch is the most ids /audio-features accepts in one call.
const maxFeaturesBatch = 100

// RecommendationsBySeed returns tracks recommended from one seed track.
func (c *Client) RecommendationsBySeed(ctx context.Context, trackID string, limit int) ([]domain.Track, error) {
	q := url.Values{}
	q.Set("seed_tracks", trackID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var body struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	if err := c.getJSON(ctx, "recommendations", "/recommendations", q, &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}
	return mapTracks(body.Tracks), nil
}

// AudioFeatures fetches the analysis of one track. 403, 404 and an all-zero
// answer yield ports.ErrFeaturesUnavailable.
func (c *Client) AudioFeatures(ctx context.Context, trackID string) (domain.AudioFeatures, error) {
	var body spotifyAudioFeatures
	path := "/audio-features/" + url.PathEscape(trackID)
	if err := c.getJSON(ctx, "audio_features", path, nil, &body); err != nil {
		var lerr *ports.LookupError
		if errors.As(err, &lerr) && (lerr.Status == http.StatusForbidden || lerr.Status == http.StatusNotFound) {
			c.logger.Warn("spotify adapter: audio features unavailable",
				zap.String("track", trackID), zap.Int("status", lerr.Status))
			return domain.AudioFeatures{}, fmt.Errorf("spotify adapter: track %s: %w", trackID, ports.ErrFeaturesUnavailable)
		}
		return domain.AudioFeatures{}, fmt.Errorf("spotify adapter: %w", err)
	}

	f := mapFeatures(body)
	if f.IsZero() {
		return domain.AudioFeatures{}, fmt.Errorf("spotify adapter: track %s: %w", trackID, ports.ErrFeaturesUnavailable)
	}
	return f, nil
}

// AudioFeaturesBatch fetches features for many tracks, in chunks of 100.
// Tracks Spotify has no analysis for are absent from the result.
func (c *Client) AudioFeaturesBatch(ctx context.Context, trackIDs []string) (map[string]domain.AudioFeatures, error) {
	result := make(map[string]domain.AudioFeatures, len(trackIDs))

	for start := 0; start < len(trackIDs); start += maxFeaturesBatch {
		end := min(start+maxFeaturesBatch, len(trackIDs))

		var body struct {
			AudioFeatures []*spotifyAudioFeatures `json:"audio_features"`
		}
		q := url.Values{"ids": {strings.Join(trackIDs[start:end], ",")}}
		if err := c.getJSON(ctx, "audio_features_batch", "/audio-features", q, &body); err != nil {
			return nil, fmt.Errorf("spotify adapter: %w", err)
		}

		for _, raw := range body.AudioFeatures {
			if raw == nil || raw.ID == "" { // Spotify returns null for some tracks
				continue
			}
			if f := mapFeatures(*raw); !f.IsZero() {
				result[raw.ID] = f
			}
		}
	}

	return result, nil
}
