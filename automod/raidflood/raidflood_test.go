package raidflood

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerEscalation(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()

	for i := 1; i <= 4; i++ {
		count, escalate := tr.RecordTrigger("B")
		assert.Equal(i, count)
		assert.False(escalate)
	}

	count, escalate := tr.RecordTrigger("B")
	assert.Equal(5, count)
	assert.True(escalate)
	assert.Equal(0, tr.size())

	// the entry was deleted: a subsequent trigger starts a fresh count
	count, escalate = tr.RecordTrigger("B")
	assert.Equal(1, count)
	assert.False(escalate)
}

func TestTrackerBatchesIndependent(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()

	count, _ := tr.RecordTrigger("A")
	assert.Equal(1, count)
	count, _ = tr.RecordTrigger("B")
	assert.Equal(1, count)
	count, _ = tr.RecordTrigger("A")
	assert.Equal(2, count)
}

func TestTrackerCleanupLowActivity(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()

	tr.RecordTrigger("low")
	tr.RecordTrigger("low")
	for i := 0; i < 3; i++ {
		tr.RecordTrigger("busy")
	}

	// simulate the deferred cleanup firing for both batches
	tr.expire("low")
	tr.expire("busy")

	// low-activity entry purged, busy one retained
	count, _ := tr.RecordTrigger("low")
	assert.Equal(1, count)
	count, _ = tr.RecordTrigger("busy")
	assert.Equal(4, count)
}

func TestTrackerRemoveCancels(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()
	tr.RecordTrigger("B")
	tr.Remove("B")
	assert.Equal(0, tr.size())

	count, escalate := tr.RecordTrigger("B")
	assert.Equal(1, count)
	assert.False(escalate)
}
