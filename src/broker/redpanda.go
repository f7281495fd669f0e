package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"ci-deployer/src/logger"
)

// Header set on every produced record.
const ProducerHeader = "producer"

// RedpandaOption configures a RedpandaBroker.
type RedpandaOption func(*RedpandaBroker)

// FromStart makes new consumer groups replay the topic from its first
// record. By default they only see records produced after they join.
func FromStart() RedpandaOption {
	return func(b *RedpandaBroker) { b.fromStart = true }
}

// WithClientID overrides the client id reported to the brokers.
func WithClientID(id string) RedpandaOption {
	return func(b *RedpandaBroker) { b.clientID = id }
}

// RedpandaBroker publishes and follows deployment events on a
// Kafka-compatible cluster.
type RedpandaBroker struct {
	seeds     []string
	clientID  string
	fromStart bool
	log       logger.Logger

	producer *kgo.Client

	mu        sync.Mutex
	consumers map[string]*kgo.Client // topic:group
	closed    bool
}

// NewRedpandaBroker creates the producer client. No connection is made
// until the first publish.
func NewRedpandaBroker(seeds []string, log logger.Logger, opts ...RedpandaOption) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}

	b := &RedpandaBroker{
		seeds:     seeds,
		clientID:  "cideploy",
		log:       log,
		consumers: make(map[string]*kgo.Client),
	}
	for _, opt := range opts {
		opt(b)
	}

	producer, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(b.clientID),
		kgo.AllowAutoTopicCreation(),
		// one deployment's events share a key, hence a partition, hence an order
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	b.producer = producer
	return b, nil
}

// Publish produces one record and waits for it to be acknowledged.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("broker is closed")
	}

	rec := &kgo.Record{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: ProducerHeader, Value: []byte(b.clientID)}},
	}
	if err := b.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins groupID on topic and streams its records until ctx is
// done or the broker is closed. One subscription per topic and group.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}
	id := topic + ":" + groupID
	if _, ok := b.consumers[id]; ok {
		return nil, fmt.Errorf("already subscribed to %s as %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(b.consumerOptions(topic, groupID)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", topic, err)
	}
	b.consumers[id] = consumer

	out := make(chan Message, 100)
	go b.follow(ctx, consumer, out)
	return out, nil
}

func (b *RedpandaBroker) consumerOptions(topic, groupID string) []kgo.Opt {
	start := kgo.NewOffset().AtEnd()
	if b.fromStart {
		start = kgo.NewOffset().AtStart()
	}
	return []kgo.Opt{
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(b.clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(start),
	}
}

func (b *RedpandaBroker) follow(ctx context.Context, consumer *kgo.Client, out chan<- Message) {
	defer close(out)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				b.log.Error("Fetch error on %s/%d: %v", topic, partition, err)
			}
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			select {
			case out <- recordMessage(iter.Next()):
			case <-ctx.Done():
				return
			}
		}
	}
}

func recordMessage(r *kgo.Record) Message {
	return Message{
		Topic:     r.Topic,
		Key:       string(r.Key),
		Value:     r.Value,
		Offset:    r.Offset,
		Partition: r.Partition,
		Timestamp: r.Timestamp.UnixMilli(),
	}
}

// Close stops every subscription and the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, consumer := range b.consumers {
		consumer.Close()
		delete(b.consumers, id)
	}
	b.producer.Close()
	return nil
}
