package model

// ReviewRequestStatus represents the lifecycle state of a review request.
type ReviewRequestStatus string

const (
	ReviewRequestPending   ReviewRequestStatus = "P"
	ReviewRequestSubmitted ReviewRequestStatus = "S"
	ReviewRequestDiscarded ReviewRequestStatus = "D"
)

// MessageLevel is the severity of a one-time user-visible message.
type MessageLevel string

const (
	MessageInfo    MessageLevel = "info"
	MessageSuccess MessageLevel = "success"
	MessageWarning MessageLevel = "warning"
	MessageError   MessageLevel = "error"
)

// SearchKind identifies the type of object a search document describes.
type SearchKind string

const (
	SearchKindReviewRequest SearchKind = "reviewrequest"
	SearchKindUser          SearchKind = "user"
)
