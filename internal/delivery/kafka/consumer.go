package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/config"
	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

var errUnknownTopic = errors.New("no handler for topic")

// Consumer serves coupon requests from the request topics. Domain failures are answered
// right away; internal failures go through the retry topic and end in the DLQ.
type Consumer struct {
	client  *kgo.Client
	cfg     *config.Config
	service usecase.CouponGateway
	log     *zap.Logger
	ready   chan struct{}
	now     func() time.Time
}

func NewConsumer(cfg *config.Config, client *kgo.Client, service usecase.CouponGateway, log *zap.Logger) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		service: service,
		log:     log,
		ready:   make(chan struct{}),
		now:     time.Now,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.Warn("consumer_poll_error", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			c.processRecord(ctx, iter.Next())
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			c.log.Error("consumer_commit_failed", zap.Error(err))
		}
	}
}

// StartRetry moves records from the retry topics back to their request topic once their
// x-next-at time has passed.
func (c *Consumer) StartRetry(ctx context.Context) {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()

			if nextAt, ok := retryNextAt(record); ok && c.now().Before(nextAt) {
				select {
				case <-time.After(nextAt.Sub(c.now())):
				case <-ctx.Done():
					return
				}
			}

			requeued := &kgo.Record{
				Topic:   requestTopicFor(record.Topic),
				Key:     record.Key,
				Value:   record.Value,
				Headers: record.Headers,
			}
			if err := c.client.ProduceSync(ctx, requeued).FirstErr(); err != nil {
				c.log.Error("retry_requeue_failed", zap.String("topic", requeued.Topic), zap.Error(err))
			}
		}
		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			c.log.Error("retry_commit_failed", zap.Error(err))
		}
	}
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.deadLetter(ctx, record, req, ErrCodeInvalidRequest, "invalid request payload")
		return
	}

	log := c.log.With(
		zap.String("topic", record.Topic),
		zap.String("correlation_id", req.CorrelationID),
		zap.Int("attempt", attemptOf(record)),
	)
	ctx = logger.IntoContext(ctx, log)

	resp, err := c.dispatch(ctx, record.Topic, req)
	if err == nil {
		c.sendResponse(ctx, req.ReplyTo, resp)
		return
	}

	if domain.KindOf(err) != domain.KindInternal {
		c.sendResponse(ctx, req.ReplyTo, domainErrorResponse(req.CorrelationID, err))
		return
	}

	log.Warn("coupon_request_failed", zap.Error(err))
	if c.retry(ctx, record) {
		return
	}
	c.deadLetter(ctx, record, req, string(domain.KindInternal), err.Error())
}

func (c *Consumer) dispatch(ctx context.Context, topic string, req RequestPayload) (*ResponsePayload, error) {
	resp := successResponse(req.CorrelationID)
	switch topic {
	case TopicCreateRequest:
		if req.Coupon == nil {
			return nil, fmt.Errorf("%w: coupon is required", domain.ErrValidation)
		}
		created, err := c.service.CreateCoupon(ctx, req.Coupon.toDomain())
		if err != nil {
			return nil, err
		}
		resp.Coupon = couponPayload(created)
	case TopicClaimRequest:
		claim, err := c.service.ClaimCoupon(ctx, req.UserID, req.Code)
		if err != nil {
			return nil, err
		}
		resp.Claim = claimPayload(claim)
	case TopicGetRequest:
		coupon, err := c.service.GetCoupon(ctx, req.Code)
		if err != nil {
			return nil, err
		}
		resp.Coupon = couponPayload(coupon)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTopic, topic)
	}
	return resp, nil
}

// retry reports false once the record has used up its attempts.
func (c *Consumer) retry(ctx context.Context, record *kgo.Record) bool {
	next, ok := retryRecord(record, c.cfg.MaxRetries(), c.cfg.Kafka.RetryBackoff, c.now())
	if !ok {
		return false
	}
	if err := c.client.ProduceSync(ctx, next).FirstErr(); err != nil {
		c.log.Error("retry_produce_failed", zap.String("topic", next.Topic), zap.Error(err))
		return false
	}
	return true
}

func (c *Consumer) sendResponse(ctx context.Context, topic string, resp *ResponsePayload) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		c.log.Error("reply_encode_failed", zap.Error(err))
		return
	}
	record := &kgo.Record{
		Topic: topic,
		Value: payload,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		c.log.Error("reply_send_failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (c *Consumer) deadLetter(ctx context.Context, record *kgo.Record, req RequestPayload, code, message string) {
	c.sendResponse(ctx, req.ReplyTo, errorResponse(req.CorrelationID, code, message))

	dlq := dlqRecord(record, message)
	if err := c.client.ProduceSync(ctx, dlq).FirstErr(); err != nil {
		c.log.Error("dlq_produce_failed", zap.String("topic", dlq.Topic), zap.Error(err))
		return
	}
	c.log.Warn("request_dead_lettered", zap.String("topic", dlq.Topic), zap.String("reason", message))
}

func baseTopic(topic string) string {
	topic = strings.TrimSuffix(topic, TopicRequestSuffix)
	return strings.TrimSuffix(topic, TopicRetrySuffix)
}

func requestTopicFor(topic string) string {
	return baseTopic(topic) + TopicRequestSuffix
}

// retryRecord builds the next retry attempt for record, with a linear backoff.
func retryRecord(record *kgo.Record, maxRetries int, backoff time.Duration, now time.Time) (*kgo.Record, bool) {
	attempt := attemptOf(record) + 1
	if attempt > maxRetries {
		return nil, false
	}
	headers := withHeader(record.Headers, RetryHeaderAttempt, strconv.Itoa(attempt))
	headers = withHeader(headers, RetryHeaderNextAt, now.Add(time.Duration(attempt)*backoff).UTC().Format(time.RFC3339Nano))
	return &kgo.Record{
		Topic:   baseTopic(record.Topic) + TopicRetrySuffix,
		Key:     record.Key,
		Value:   record.Value,
		Headers: headers,
	}, true
}

func dlqRecord(record *kgo.Record, reason string) *kgo.Record {
	return &kgo.Record{
		Topic:   requestTopicFor(record.Topic) + TopicDLQSuffix,
		Key:     record.Key,
		Value:   record.Value,
		Headers: withHeader(record.Headers, ErrorHeaderKey, reason),
	}
}

func withHeader(headers []kgo.RecordHeader, key, value string) []kgo.RecordHeader {
	out := make([]kgo.RecordHeader, 0, len(headers)+1)
	for _, h := range headers {
		if h.Key != key {
			out = append(out, h)
		}
	}
	return append(out, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

func headerValue(record *kgo.Record, key string) (string, bool) {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func attemptOf(record *kgo.Record) int {
	raw, ok := headerValue(record, RetryHeaderAttempt)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func retryNextAt(record *kgo.Record) (time.Time, bool) {
	raw, ok := headerValue(record, RetryHeaderNextAt)
	if !ok {
		return time.Time{}, false
	}
	nextAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return nextAt, true
}
