package kafka

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetWriter_ConcurrentAccess(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}})

	topics := []string{TopicBiasUpdated, TopicReleaseProcessed, TopicQualityFailed}

	// Both scheduler workers share one producer, so writer creation must
	// survive concurrent first publishes to different topics
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		for _, topic := range topics {
			wg.Add(1)
			go func(topic string) {
				defer wg.Done()
				p.getWriter(topic)
			}(topic)
		}
	}
	wg.Wait()

	assert.Len(t, p.writers, len(topics))
}

func TestGetWriter_ReusesWriterPerTopic(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}})

	first := p.getWriter(TopicBiasUpdated)
	second := p.getWriter(TopicBiasUpdated)
	assert.Same(t, first, second)

	other := p.getWriter(TopicQualityFailed)
	assert.NotSame(t, first, other)
}
