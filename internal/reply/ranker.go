package reply

import "github.com/Proton-105/rumor-bot/internal/domain"

// DefaultVisibleLimit is how many replies fit in one carousel.
const DefaultVisibleLimit = 10

// Tally counts replies per type. It always holds every known type.
type Tally map[domain.ReplyType]int

// Ranked is an article's replies in presentation order.
type Ranked struct {
	Ordered   []domain.ArticleReply
	Visible   []domain.ArticleReply
	Truncated bool
	Tally     Tally
}

// RankAndTally puts substantive replies ahead of off-topic ones, keeping the
// backend order inside each group, and counts them by type. A non-positive
// limit uses DefaultVisibleLimit.
func RankAndTally(articleReplies []domain.ArticleReply, limit int) Ranked {
	if limit <= 0 {
		limit = DefaultVisibleLimit
	}

	tally := make(Tally, len(domain.ReplyTypes))
	for _, t := range domain.ReplyTypes {
		tally[t] = 0
	}

	ordered := make([]domain.ArticleReply, 0, len(articleReplies))
	var offTopic []domain.ArticleReply

	for _, ar := range articleReplies {
		if _, known := tally[ar.Reply.Type]; known {
			tally[ar.Reply.Type]++
		}
		if ar.Reply.Type == domain.ReplyTypeNotArticle {
			offTopic = append(offTopic, ar)
			continue
		}
		ordered = append(ordered, ar)
	}
	ordered = append(ordered, offTopic...)

	visible := ordered
	if len(visible) > limit {
		visible = visible[:limit]
	}

	return Ranked{
		Ordered:   ordered,
		Visible:   visible,
		Truncated: len(ordered) > limit,
		Tally:     tally,
	}
}

// ReplyIDs returns the ids of the ordered replies.
func (r Ranked) ReplyIDs() []string {
	ids := make([]string, len(r.Ordered))
	for i, ar := range r.Ordered {
		ids[i] = ar.Reply.ID
	}
	return ids
}
