package kafka

import "time"

const (
	TopicCreateRequest = "coupon.create.req"
	TopicClaimRequest  = "coupon.claim.req"
	TopicGetRequest    = "coupon.get.req"
	TopicCreateRetry   = "coupon.create.retry"
	TopicClaimRetry    = "coupon.claim.retry"
	TopicGetRetry      = "coupon.get.retry"
	TopicReplyPrefix   = "coupon.reply."
	TopicRequestSuffix = ".req"
	TopicRetrySuffix   = ".retry"
	TopicDLQSuffix     = ".dlq"

	// Domain events land on TopicEventPrefix + event type, e.g. vinyl.events.order.created.
	TopicEventPrefix = "vinyl.events."

	RequestTimeout = 3 * time.Second

	RetryHeaderNextAt  = "x-next-at"
	RetryHeaderAttempt = "x-attempt"
	ErrorHeaderKey     = "x-error"

	SchemaVersion = 1
)
