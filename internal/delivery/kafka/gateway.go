package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/config"
	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Gateway serves coupon operations over Kafka request/reply. Replies arrive on this
// instance's reply topic and are matched back by correlation id.
type Gateway struct {
	client      *kgo.Client
	cfg         *config.Config
	log         *zap.Logger
	pendingResp sync.Map
}

func NewGateway(cfg *config.Config, client *kgo.Client, log *zap.Logger) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

func (g *Gateway) replyTopic() string {
	return TopicReplyPrefix + g.cfg.Kafka.InstanceID
}

func (g *Gateway) newRequest() RequestPayload {
	return RequestPayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: uuid.New().String(),
		ReplyTo:       g.replyTopic(),
	}
}

func (g *Gateway) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	req := g.newRequest()
	req.Coupon = couponPayload(c)

	resp, err := g.requestReply(ctx, TopicCreateRequest, []byte(c.Code), req)
	if err != nil {
		return domain.Coupon{}, err
	}
	if resp.Status == StatusError {
		return domain.Coupon{}, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Coupon == nil {
		return domain.Coupon{}, errors.New("create reply carried no coupon")
	}
	return resp.Coupon.toDomain(), nil
}

func (g *Gateway) ClaimCoupon(ctx context.Context, userID int64, code string) (domain.UserCoupon, error) {
	req := g.newRequest()
	req.UserID = userID
	req.Code = code

	// Keyed by coupon so claims on one coupon stay ordered on one partition.
	key := fmt.Sprintf("%s:%s", code, strconv.FormatInt(userID, 10))
	resp, err := g.requestReply(ctx, TopicClaimRequest, []byte(key), req)
	if err != nil {
		return domain.UserCoupon{}, err
	}
	if resp.Status == StatusError {
		return domain.UserCoupon{}, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Claim == nil {
		return domain.UserCoupon{}, errors.New("claim reply carried no claim")
	}
	return resp.Claim.toDomain(), nil
}

func (g *Gateway) GetCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	req := g.newRequest()
	req.Code = code

	resp, err := g.requestReply(ctx, TopicGetRequest, []byte(code), req)
	if err != nil {
		return domain.Coupon{}, err
	}
	if resp.Status == StatusError {
		return domain.Coupon{}, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Coupon == nil {
		return domain.Coupon{}, domain.ErrCouponNotFound
	}
	return resp.Coupon.toDomain(), nil
}

func (g *Gateway) requestReply(ctx context.Context, topic string, key []byte, req RequestPayload) (*ResponsePayload, error) {
	respChan := make(chan *ResponsePayload, 1)
	g.pendingResp.Store(req.CorrelationID, respChan)
	defer g.pendingResp.Delete(req.CorrelationID)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: payload,
	}

	if err := g.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for %s reply", topic)
	}
}

func (g *Gateway) HandleResponse(payload []byte) {
	var resp ResponsePayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		g.log.Warn("reply_decode_failed", zap.Error(err))
		return
	}

	if ch, ok := g.pendingResp.Load(resp.CorrelationID); ok {
		select {
		case ch.(chan *ResponsePayload) <- &resp:
		default:
		}
		return
	}

	g.log.Debug("reply_without_waiter", zap.String("correlation_id", resp.CorrelationID))
}

// PollReplies feeds this instance's reply topic into HandleResponse until the client closes.
func (g *Gateway) PollReplies(ctx context.Context, client *kgo.Client) {
	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			g.HandleResponse(iter.Next().Value)
		}
	}
}

var _ usecase.CouponGateway = (*Gateway)(nil)
