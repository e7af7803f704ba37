package state

import (
	"errors"
	"fmt"
	"slices"
)

// ErrMissingData reports a turn entering a state without the data that state owns.
var ErrMissingData = errors.New("required session data not set")

// Data holds the working values carried across turns.
//
// Ownership by state:
//   - SearchedText is written at __INIT__ and read by the submission states.
//   - FoundArticleIDs is written at __INIT__ and read at CHOOSING_ARTICLE.
//   - SelectedArticleID and SelectedArticleText are written at CHOOSING_ARTICLE.
//   - FoundReplyIDs is written at CHOOSING_ARTICLE and read at CHOOSING_REPLY.
//   - SelectedReplyID is written at CHOOSING_REPLY and read by the feedback states.
//   - ReasonText is written by the reason states and read by their confirmations.
//   - Comment is written at ASKING_NOT_USEFUL_FEEDBACK.
type Data struct {
	SearchedText        string   `json:"searchedText,omitempty"`
	FoundArticleIDs     []string `json:"foundArticleIds,omitempty"`
	SelectedArticleID   string   `json:"selectedArticleId,omitempty"`
	SelectedArticleText string   `json:"selectedArticleText,omitempty"`
	FoundReplyIDs       []string `json:"foundReplyIds,omitempty"`
	SelectedReplyID     string   `json:"selectedReplyId,omitempty"`
	ReasonText          string   `json:"reasonText,omitempty"`
	Comment             string   `json:"comment,omitempty"`
}

// Clone returns a copy that shares no slices with d.
func (d Data) Clone() Data {
	copied := d
	copied.FoundArticleIDs = slices.Clone(d.FoundArticleIDs)
	copied.FoundReplyIDs = slices.Clone(d.FoundReplyIDs)
	return copied
}

// Require checks that the fields the given state reads are set.
func (d Data) Require(s State) error {
	switch s {
	case StateChoosingArticle:
		if d.FoundArticleIDs == nil {
			return missing("foundArticleIds", s)
		}
	case StateChoosingReply:
		if d.FoundReplyIDs == nil {
			return missing("foundReplyIds", s)
		}
	case StateAskingReplyFeedback, StateAskingNotUsefulFeedback, StateAskingNotUsefulFeedbackSubmission:
		if d.SelectedReplyID == "" {
			return missing("selectedReplyId", s)
		}
	case StateAskingArticleSubmission:
		if d.SearchedText == "" {
			return missing("searchedText", s)
		}
	case StateAskingReplyRequestReason:
		if d.SelectedArticleID == "" {
			return missing("selectedArticleId", s)
		}
	case StateAskingReplyRequestSubmission:
		if d.SearchedText == "" {
			return missing("searchedText", s)
		}
		if d.SelectedArticleID == "" {
			return missing("selectedArticleId", s)
		}
	}

	return nil
}

func missing(field string, s State) error {
	return fmt.Errorf("%w: %s is required in %s", ErrMissingData, field, s)
}
