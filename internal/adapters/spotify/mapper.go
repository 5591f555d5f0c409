package spotify

import "github.com/ewilliams-labs/song-bot/internal/core/domain"

// mapTrackToDomain converts a raw Spotify track. The first credited artist
// becomes the primary artist. Features are left nil.
func mapTrackToDomain(st spotifyTrack) domain.Track {
	names := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		names = append(names, a.Name)
	}

	dt := domain.Track{
		ID:         st.ID,
		Title:      st.Name,
		Artists:    names,
		Album:      st.Album.Name,
		PreviewURL: st.PreviewURL,
	}
	if len(names) > 0 {
		dt.Artist = names[0]
	}
	return dt
}

func mapTracks(in []spotifyTrack) []domain.Track {
	out := make([]domain.Track, 0, len(in))
	for _, st := range in {
		if st.ID == "" {
			continue
		}
		out = append(out, mapTrackToDomain(st))
	}
	return out
}

func mapArtists(in []spotifyArtist) []domain.Artist {
	out := make([]domain.Artist, len(in))
	for i, a := range in {
		out[i] = domain.Artist{ID: a.ID, Name: a.Name}
	}
	return out
}

func mapFeatures(f spotifyAudioFeatures) domain.AudioFeatures {
	return domain.AudioFeatures{
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Key:              f.Key,
		Loudness:         f.Loudness,
		Mode:             f.Mode,
		Speechiness:      f.Speechiness,
		Acousticness:     f.Acousticness,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		Valence:          f.Valence,
		Tempo:            f.Tempo,
		DurationMs:       f.DurationMs,
		TimeSignature:    f.TimeSignature,
	}
}
