package state

// State names a node in the conversation machine.
type State string

const (
	// StateInit waits for a message to look up.
	StateInit State = "__INIT__"
	// StateChoosingArticle waits for the user to pick one of the found articles.
	StateChoosingArticle State = "CHOOSING_ARTICLE"
	// StateChoosingReply waits for the user to pick one of the article's replies.
	StateChoosingReply State = "CHOOSING_REPLY"
	// StateAskingReplyFeedback asks whether the shown reply was helpful.
	StateAskingReplyFeedback State = "ASKING_REPLY_FEEDBACK"
	// StateAskingNotUsefulFeedback asks why the reply was not helpful.
	StateAskingNotUsefulFeedback State = "ASKING_NOT_USEFUL_FEEDBACK"
	// StateAskingNotUsefulFeedbackSubmission confirms the negative feedback comment.
	StateAskingNotUsefulFeedbackSubmission State = "ASKING_NOT_USEFUL_FEEDBACK_SUBMISSION"
	// StateAskingArticleSubmissionReason asks why the unknown message looks like a rumor.
	StateAskingArticleSubmissionReason State = "ASKING_ARTICLE_SUBMISSION_REASON"
	// StateAskingArticleSubmission confirms submitting the message as a new article.
	StateAskingArticleSubmission State = "ASKING_ARTICLE_SUBMISSION"
	// StateAskingReplyRequestReason asks why the article deserves a reply.
	StateAskingReplyRequestReason State = "ASKING_REPLY_REQUEST_REASON"
	// StateAskingReplyRequestSubmission confirms the reply request.
	StateAskingReplyRequestSubmission State = "ASKING_REPLY_REQUEST_SUBMISSION"
)

// States lists every state of the machine.
var States = []State{
	StateInit,
	StateChoosingArticle,
	StateChoosingReply,
	StateAskingReplyFeedback,
	StateAskingNotUsefulFeedback,
	StateAskingNotUsefulFeedbackSubmission,
	StateAskingArticleSubmissionReason,
	StateAskingArticleSubmission,
	StateAskingReplyRequestReason,
	StateAskingReplyRequestSubmission,
}

// Known reports whether s is one of the machine's states.
func (s State) Known() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// EventType tells what kind of stimulus started a turn.
type EventType string

const (
	EventText       EventType = "text"
	EventPostback   EventType = "postback"
	EventAttachment EventType = "attachment"
)

// Event is one inbound stimulus for a turn.
type Event struct {
	Input string    `json:"input"`
	Type  EventType `json:"type"`
}

// Session is the per-user conversation memory persisted between turns.
type Session struct {
	State State `json:"state"`
	Data  Data  `json:"data"`
	// IssuedAt is the unix time in milliseconds of the last state change.
	IssuedAt int64 `json:"issuedAt"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	copied := *s
	copied.Data = s.Data.Clone()
	return &copied
}
