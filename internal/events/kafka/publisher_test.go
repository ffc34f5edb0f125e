package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublisher_Topic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "ledger.")
	defer p.Close()

	assert.Equal(t, "ledger.transfer", p.Topic("transfer"))
	assert.Equal(t, "localhost:9092", p.writer.Addr.String())
}
