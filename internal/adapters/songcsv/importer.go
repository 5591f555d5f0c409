// Package songcsv reads catalog exports whose audio_features column holds a
// Python dict literal, e.g.
//
//	artist_name,track_name,track_id,audio_features
//	ACDC,Thunderstruck,57bgt...,"{'danceability': 0.502, 'energy': 0.89, ...}"
package songcsv

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// Required header columns.
const (
	colArtist   = "artist_name"
	colTrack    = "track_name"
	colID       = "track_id"
	colFeatures = "audio_features"
)

const saveBatch = 500

var errNoFeatures = errors.New("no audio features")

// Result summarizes a parse or import.
type Result struct {
	Imported int
	Skipped  int
}

var pyLiterals = strings.NewReplacer("'", `"`, "None", "null", "True", "true", "False", "false")

// Parse reads every row of r. Rows whose features are missing or malformed are
// skipped and counted; a bad header is an error.
func Parse(r io.Reader, logger *zap.Logger) ([]domain.Track, Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, Result{}, fmt.Errorf("songcsv: read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, Result{}, err
	}

	var (
		tracks []domain.Track
		res    Result
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, res, fmt.Errorf("songcsv: line %d: %w", line, err)
		}

		track, err := parseRow(rec, idx)
		if err != nil {
			logger.Debug("songcsv: skipping row", zap.Int("line", line), zap.Error(err))
			res.Skipped++
			continue
		}
		tracks = append(tracks, track)
		res.Imported++
	}
	return tracks, res, nil
}

// Import parses r and saves the tracks into repo in batches.
func Import(ctx context.Context, r io.Reader, repo ports.CatalogRepository, logger *zap.Logger) (Result, error) {
	tracks, res, err := Parse(r, logger)
	if err != nil {
		return res, err
	}
	for start := 0; start < len(tracks); start += saveBatch {
		end := min(start+saveBatch, len(tracks))
		if err := repo.SaveTracks(ctx, tracks[start:end]); err != nil {
			return Result{Imported: start, Skipped: res.Skipped}, fmt.Errorf("songcsv: save: %w", err)
		}
	}
	return res, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{colArtist, colTrack, colID, colFeatures} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("songcsv: missing column %q", col)
		}
	}
	return idx, nil
}

func parseRow(rec []string, idx map[string]int) (domain.Track, error) {
	field := func(col string) string {
		if i := idx[col]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	id := field(colID)
	if id == "" {
		return domain.Track{}, errors.New("empty track id")
	}
	vec, err := parseFeatures(field(colFeatures))
	if err != nil {
		return domain.Track{}, fmt.Errorf("track %s: %w", id, err)
	}

	artist := field(colArtist)
	return domain.Track{
		ID:       id,
		Title:    field(colTrack),
		Artist:   artist,
		Artists:  []string{artist},
		Features: vec,
	}, nil
}

// parseFeatures decodes a Python dict literal and picks domain.FeatureNames
// in order. Every feature must be present and numeric.
func parseFeatures(raw string) (domain.Vector, error) {
	if raw == "" || raw == "None" {
		return nil, errNoFeatures
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(pyLiterals.Replace(raw)), &m); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}

	vec := make(domain.Vector, len(domain.FeatureNames))
	for i, name := range domain.FeatureNames {
		v, ok := m[name].(float64)
		if !ok {
			return nil, fmt.Errorf("feature %s missing or not numeric", name)
		}
		vec[i] = v
	}
	return vec, nil
}
