package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/azizikri/vinyl-checkout/internal/config"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Topics lists every topic this instance produces to or consumes from.
func Topics(cfg *config.Config) []string {
	topics := []string{
		TopicCreateRequest,
		TopicClaimRequest,
		TopicGetRequest,
		TopicCreateRetry,
		TopicClaimRetry,
		TopicGetRetry,
		TopicCreateRequest + TopicDLQSuffix,
		TopicClaimRequest + TopicDLQSuffix,
		TopicGetRequest + TopicDLQSuffix,
		TopicReplyPrefix + cfg.Kafka.InstanceID,
	}
	for _, t := range usecase.EventTypes() {
		topics = append(topics, EventTopic(t))
	}
	return topics
}

func EnsureTopics(ctx context.Context, client *kgo.Client, cfg *config.Config, log *zap.Logger) error {
	adm := kadm.NewClient(client)

	partitions := cfg.TopicPartitions()
	retryPartitions := cfg.RetryPartitions()
	replicationFactor := cfg.ReplicationFactor()

	for _, topic := range Topics(cfg) {
		p := partitions
		if strings.HasSuffix(topic, TopicRetrySuffix) || strings.HasSuffix(topic, TopicDLQSuffix) {
			p = retryPartitions
		}

		resp, err := adm.CreateTopics(ctx, int32(p), replicationFactor, nil, topic)
		if err != nil {
			return fmt.Errorf("failed to create topic %s: %w", topic, err)
		}
		for _, detail := range resp {
			if detail.Err != nil && !errors.Is(detail.Err, kerr.TopicAlreadyExists) {
				return fmt.Errorf("failed to create topic %s: %w", detail.Topic, detail.Err)
			}
		}
	}

	log.Info("kafka_topics_ensured", zap.Int("count", len(Topics(cfg))))
	return nil
}
