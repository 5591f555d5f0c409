package spotify

// spotifyTrack is the track object shared by search, recommendations and
// top-tracks responses.
type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	PreviewURL string          `json:"preview_url"`
	Album      struct {
		Name string `json:"name"`
	} `json:"album"`
}

// spotifyArtist is the simplified and full artist object.
type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// spotifyAudioFeatures is one entry of /audio-features.
type spotifyAudioFeatures struct {
	ID               string  `json:"id"`
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

type trackPage struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type artistPage struct {
	Artists struct {
		Items []spotifyArtist `json:"items"`
	} `json:"artists"`
}
