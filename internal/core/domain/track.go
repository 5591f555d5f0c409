package domain

// FeatureNames lists the audio attributes carried by every catalog vector, in
// vector order. The order matches the columns of the collected catalog.
var FeatureNames = []string{
	"danceability",
	"energy",
	"key",
	"loudness",
	"mode",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
	"valence",
	"tempo",
	"duration_ms",
	"time_signature",
}

// Vector is an ordered feature vector.
type Vector []float64

// Dims returns the dimensionality of the vector.
func (v Vector) Dims() int { return len(v) }

// Clone returns a copy that shares no memory with v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// AudioFeatures holds the numeric audio attributes of a track.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              float64 `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             float64 `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMs       float64 `json:"duration_ms"`
	TimeSignature    float64 `json:"time_signature"`
}

// Vector flattens the features in FeatureNames order.
func (f AudioFeatures) Vector() Vector {
	return Vector{
		f.Danceability,
		f.Energy,
		f.Key,
		f.Loudness,
		f.Mode,
		f.Speechiness,
		f.Acousticness,
		f.Instrumentalness,
		f.Liveness,
		f.Valence,
		f.Tempo,
		f.DurationMs,
		f.TimeSignature,
	}
}

// IsZero reports whether every attribute is zero. Spotify answers with an
// all-zero object for tracks it has not analyzed.
func (f AudioFeatures) IsZero() bool {
	return f == (AudioFeatures{})
}

// FeaturesFromVector is the inverse of AudioFeatures.Vector. It returns false
// when v does not have len(FeatureNames) dimensions.
func FeaturesFromVector(v Vector) (AudioFeatures, bool) {
	if len(v) != len(FeatureNames) {
		return AudioFeatures{}, false
	}
	return AudioFeatures{
		Danceability:     v[0],
		Energy:           v[1],
		Key:              v[2],
		Loudness:         v[3],
		Mode:             v[4],
		Speechiness:      v[5],
		Acousticness:     v[6],
		Instrumentalness: v[7],
		Liveness:         v[8],
		Valence:          v[9],
		Tempo:            v[10],
		DurationMs:       v[11],
		TimeSignature:    v[12],
	}, true
}

// Track represents a musical track in the domain layer.
type Track struct {
	ID         string
	Title      string
	Artist     string   // primary artist
	Artists    []string // every credited artist, primary first
	Album      string   // optional
	PreviewURL string   // optional 30s MP3 preview
	Features   Vector   // nil when the track has not been analyzed
}

// Label renders the track as "artist - title".
func (t Track) Label() string {
	return t.Artist + " - " + t.Title
}

// Artist is an artist record returned by the lookup API.
type Artist struct {
	ID   string
	Name string
}
