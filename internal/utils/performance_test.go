package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestOperationTimer_LogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	OperationTimer("recompute", log)()

	assert.Contains(t, buf.String(), `"operation":"recompute"`)
	assert.Contains(t, buf.String(), "Operation completed")
	assert.NotContains(t, buf.String(), "Slow operation detected")
}

func TestOperationTimer_WarnsWhenSlow(t *testing.T) {
	previous := SlowOperationThreshold
	SlowOperationThreshold = time.Nanosecond
	t.Cleanup(func() { SlowOperationThreshold = previous })

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.WarnLevel)

	stop := OperationTimer("record_transaction", log)
	time.Sleep(time.Millisecond)
	stop()

	assert.Contains(t, buf.String(), "Slow operation detected")
	assert.NotContains(t, buf.String(), "Operation completed")
}
