package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEngineDuration(t *testing.T) {
	RecordEngineDuration("diagnosis", 120*time.Millisecond)
	RecordEngineDuration("correlation", 40*time.Millisecond)
	RecordEngineDuration("correlation", 55*time.Millisecond)

	// One series per engine label
	assert.GreaterOrEqual(t, testutil.CollectAndCount(EngineDuration), 2)
}

func TestRecordWorkerExecution(t *testing.T) {
	RecordWorkerExecution("signal_pipeline", time.Second, nil)
	RecordWorkerExecution("signal_pipeline", time.Second, errors.New("boom"))

	success := testutil.ToFloat64(WorkerExecutions.WithLabelValues("signal_pipeline", "success"))
	failed := testutil.ToFloat64(WorkerExecutions.WithLabelValues("signal_pipeline", "error"))
	assert.Equal(t, 1.0, success)
	assert.Equal(t, 1.0, failed)
}

func TestKafkaMessagesCounter(t *testing.T) {
	KafkaMessages.WithLabelValues("signals.bias.updated", "success").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(
		KafkaMessages.WithLabelValues("signals.bias.updated", "success"),
	))
}
