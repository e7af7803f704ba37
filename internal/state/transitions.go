package state

// validTransitions lists the moves each state's handler may make besides
// staying put and returning to StateInit.
var validTransitions = map[State][]State{
	StateInit: {
		StateChoosingArticle,
		StateAskingArticleSubmissionReason,
	},
	StateChoosingArticle: {
		StateChoosingReply,
		StateAskingReplyFeedback,
		StateAskingArticleSubmissionReason,
		StateAskingReplyRequestReason,
	},
	StateChoosingReply: {
		StateAskingReplyFeedback,
	},
	StateAskingReplyFeedback: {
		StateAskingNotUsefulFeedback,
	},
	StateAskingNotUsefulFeedback: {
		StateAskingNotUsefulFeedbackSubmission,
	},
	StateAskingNotUsefulFeedbackSubmission: {
		StateAskingNotUsefulFeedback,
	},
	StateAskingArticleSubmissionReason: {
		StateAskingArticleSubmission,
	},
	StateAskingArticleSubmission: {
		StateAskingArticleSubmissionReason,
	},
	StateAskingReplyRequestReason: {
		StateAskingReplyRequestSubmission,
	},
	StateAskingReplyRequestSubmission: {
		StateAskingReplyRequestReason,
	},
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe state changes.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// RecordTransition reports a completed state change to the registered recorder.
func RecordTransition(from, to State) {
	transitionRecorder(string(from), string(to))
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateInit {
		return true
	}
	if from == to {
		return from.Known()
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
