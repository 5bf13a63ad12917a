package events

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/segmentio/kafka-go"
)

const (
	defaultBuffer = 256
	// maxBatch is also the writer's BatchSize.
	maxBatch = 100
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka queues events in memory and writes them from a single goroutine so
// request handlers never wait on the brokers. Messages are keyed by order ID,
// which keeps every event of one order on the same partition.
type Kafka struct {
	w     messageWriter
	inbox chan kafka.Message
	done  chan struct{}
	log   logger.Logger

	closeOnce sync.Once
}

// NewKafka starts a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    maxBatch,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafka(w, defaultBuffer)
}

func newKafka(w messageWriter, buf int) *Kafka {
	k := &Kafka{
		w:     w,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
		log:   logger.New(),
	}
	go k.loop()
	return k
}

func (k *Kafka) loop() {
	defer close(k.done)
	for m := range k.inbox {
		batch := k.drain(m)
		if err := k.w.WriteMessages(context.Background(), batch...); err != nil {
			k.log.Err(err).Error("failed to write loan events", logger.Data{"count": len(batch), "first_key": string(batch[0].Key)})
		}
	}
}

// drain returns first plus whatever is already queued, up to maxBatch.
func (k *Kafka) drain(first kafka.Message) []kafka.Message {
	batch := append(make([]kafka.Message, 0, maxBatch), first)
	for len(batch) < maxBatch {
		select {
		case m, ok := <-k.inbox:
			if !ok {
				return batch
			}
			batch = append(batch, m)
		default:
			return batch
		}
	}
	return batch
}

// Publish queues the event. It only blocks when the queue is full, and then
// no longer than ctx allows.
func (k *Kafka) Publish(ctx context.Context, eventType string, order *models.Order) error {
	env, err := NewEnvelope(eventType, order, time.Now())
	if err != nil {
		return err
	}
	msg, err := newMessage(env, order)
	if err != nil {
		return err
	}

	select {
	case k.inbox <- msg:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// Close stops accepting events, writes what is queued and closes the writer.
// Publish must not be called after Close.
func (k *Kafka) Close() error {
	var err error
	k.closeOnce.Do(func() {
		close(k.inbox)
		<-k.done
		err = errors.WithStack(k.w.Close())
	})
	return err
}

func newMessage(env *Envelope, order *models.Order) (kafka.Message, error) {
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, errors.WithStack(err)
	}
	return kafka.Message{
		Key:   []byte(strconv.Itoa(order.ID)),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}, nil
}
