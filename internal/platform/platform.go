package platform

import "context"

// PollAnswer is one tallied answer bucket on a platform poll message.
type PollAnswer struct {
	ID    int
	Text  string
	Count int
}

// PollMessage is the poll state read back from the platform.
type PollMessage struct {
	MessageID string
	Finalized bool
	Answers   []PollAnswer
}

// SendPollParams describes a two-answer (or more) poll to post.
// DurationHours is the platform-side expiry; the engine keeps its own
// minute-based close schedule independently.
type SendPollParams struct {
	ChannelID     string
	Question      string
	Answers       []string
	DurationHours int
}

// ChatPlatform is the narrow seam between the poll engine and the chat
// service: exactly the operations the core needs, nothing else.
type ChatPlatform interface {
	SendPoll(ctx context.Context, params SendPollParams) (messageID string, err error)
	SendNotice(ctx context.Context, channelID, content string) error
	FetchPollMessage(ctx context.Context, channelID, messageID string) (*PollMessage, error)
	// ListAnswerVoters pages through voters for one answer. A page
	// shorter than limit ends pagination.
	ListAnswerVoters(ctx context.Context, channelID, messageID string, answerID int, limit int, after string) ([]string, error)
	// EndPoll is best-effort; platforms auto-expire polls anyway.
	EndPoll(ctx context.Context, channelID, messageID string) error
}
