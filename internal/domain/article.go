package domain

// ReplyType classifies a fact-check reply.
type ReplyType string

const (
	ReplyTypeRumor       ReplyType = "RUMOR"
	ReplyTypeNotRumor    ReplyType = "NOT_RUMOR"
	ReplyTypeOpinionated ReplyType = "OPINIONATED"
	ReplyTypeNotArticle  ReplyType = "NOT_ARTICLE"
)

// ReplyTypes lists every reply type in presentation order.
var ReplyTypes = []ReplyType{
	ReplyTypeRumor,
	ReplyTypeNotRumor,
	ReplyTypeOpinionated,
	ReplyTypeNotArticle,
}

// Article is a user-submitted message stored by the content backend.
type Article struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	ReplyCount     int            `json:"replyCount"`
	ArticleReplies []ArticleReply `json:"articleReplies"`
}

// Reply is a fact-check response written by an editor.
type Reply struct {
	ID        string    `json:"id"`
	Type      ReplyType `json:"type"`
	Text      string    `json:"text"`
	Reference string    `json:"reference"`
}

// ArticleReply connects a reply to an article together with the feedback it received there.
type ArticleReply struct {
	Reply                 Reply `json:"reply"`
	PositiveFeedbackCount int   `json:"positiveFeedbackCount"`
	NegativeFeedbackCount int   `json:"negativeFeedbackCount"`
}

// Vote is a user's verdict on a reply.
type Vote string

const (
	VoteUp   Vote = "UPVOTE"
	VoteDown Vote = "DOWNVOTE"
)
