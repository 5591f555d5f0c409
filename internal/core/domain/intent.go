package domain

// Intent is the classified purpose of a user message.
type Intent int

const (
	IntentFallback Intent = iota
	IntentRecommend
	IntentSimilarArtist
	IntentGenre
)

func (i Intent) String() string {
	switch i {
	case IntentRecommend:
		return "recommend"
	case IntentSimilarArtist:
		return "similar_artist"
	case IntentGenre:
		return "genre"
	default:
		return "fallback"
	}
}

// Keyword returns the trigger phrase of the intent, empty for IntentFallback.
func (i Intent) Keyword() string {
	switch i {
	case IntentRecommend:
		return "recommend"
	case IntentSimilarArtist:
		return "similar artist"
	case IntentGenre:
		return "genre"
	default:
		return ""
	}
}
