package backend

const (
	listArticlesQuery = `query ($text: String!, $first: Int!) {
  ListArticles(filter: {moreLikeThis: {like: $text}}, orderBy: [{_score: DESC}], first: $first) {
    edges { node { id text } }
  }
}`

	getArticleQuery = `query ($id: String!) {
  GetArticle(id: $id) {
    id
    text
    replyCount
    articleReplies(status: NORMAL) {
      reply { id type text }
      positiveFeedbackCount
      negativeFeedbackCount
    }
  }
}`

	getReplyQuery = `query ($id: String!) {
  GetReply(id: $id) { id type text reference }
}`

	voteMutation = `mutation ($vote: FeedbackVote!, $articleId: String!, $replyId: String!, $comment: String) {
  action: CreateOrUpdateArticleReplyFeedback(vote: $vote, articleId: $articleId, replyId: $replyId, comment: $comment) {
    feedbackCount
  }
}`

	createArticleMutation = `mutation ($text: String!, $reason: String!) {
  CreateArticle(text: $text, reason: $reason, reference: {type: URL}) { id }
}`

	createReplyRequestMutation = `mutation ($id: String!, $reason: String) {
  CreateReplyRequest(articleId: $id, reason: $reason) { replyRequestCount }
}`

	pingQuery = `query { __typename }`
)
