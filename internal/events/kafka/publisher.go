package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
)

// Publisher writes events as JSON messages. The topic passed to Publish is
// prefixed with the configured prefix, e.g. "ledger." + "transfer".
type Publisher struct {
	writer *kafka.Writer
	prefix string
}

func NewPublisher(brokers []string, topicPrefix string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		prefix: topicPrefix,
	}
}

// Topic returns the kafka topic an event published under topic lands on.
func (p *Publisher) Topic(topic string) string {
	return p.prefix + topic
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := jsonx.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(
		ctx,
		kafka.Message{
			Topic: p.Topic(topic),
			Value: data,
		},
	)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
