package services

// Fixed user-facing replies.
const (
	ReplyUsage = "I can help you find song or artist recommendations. Just type 'recommend' followed by a song name, 'similar artist' followed by an artist name, or 'genre' followed by a genre."

	ReplyContinuePrompt  = "Thank you! Do you want to continue using the chatbot? (yes/no)"
	ReplyFeedbackClosing = "Thank you for your feedback! Have a great day!"
	ReplyGoodbye         = "Thank you for using the chatbot! Have a great day!"
	ReplyAnswerYesNo     = "Please answer with 'yes' or 'no'."

	ReplyProcessingError = "An error occurred while processing your request."

	ReplySongNotFound   = "Song not found. Please try another song name."
	ReplyArtistNotFound = "Artist not found. Please try another artist name."

	ReplySpecifySong   = "Please specify a song name after 'recommend'."
	ReplySpecifyArtist = "Please specify an artist name after 'similar artist'."
	ReplySpecifyGenre  = "Please specify a genre after 'genre'."

	ReplyRateLimited   = "I'm sorry, but the service is currently experiencing high demand. Please try again later."
	ReplyQuotaExceeded = "I'm sorry, but we have exceeded our current quota. Please check back later."
	ReplyResponderDown = "I'm sorry, but I couldn't process your request at the moment."

	promptRecommendations = "Did you like these recommendations? (yes/no)"
	promptArtists         = "Do you like these artists? (yes/no)"
	promptGenre           = "Did you like these songs? (yes/no)"
)

func replyGenreExhausted(genre string) string {
	return "I couldn't find any new songs in the " + genre + " genre. Try another genre."
}
