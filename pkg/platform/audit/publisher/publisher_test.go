package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	audit "proofpass/pkg/platform/audit"
	"proofpass/pkg/platform/audit/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registrationSubject = "registration:5f0c3d4e"

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Subject: registrationSubject,
		Action:  string(audit.EventBadgeMinted),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), registrationSubject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventBadgeMinted), events[0].Action)
	assert.Equal(t, audit.CategoryIssuance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Subject: registrationSubject,
			Action:  string(audit.EventBadgeClaimed),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListBySubject(context.Background(), registrationSubject)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DoesNotBlock(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				Subject: registrationSubject,
				Action:  string(audit.EventBadgeMinted),
			})
			if err != nil {
				assert.EqualError(t, err, "audit buffer full")
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	err := pub.Emit(context.Background(), audit.Event{
		Subject: registrationSubject,
		Action:  string(audit.EventEventCreated),
	})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), registrationSubject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Event{
		Subject:   registrationSubject,
		Action:    string(audit.EventBadgeClaimed),
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), registrationSubject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_CancelledContextInAsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Subject: registrationSubject, Action: string(audit.EventBadgeMinted)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_EmitAfterCloseWritesThrough(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Subject: registrationSubject, Action: string(audit.EventMintOrphaned)})
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), registrationSubject)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_KeepsOrderPerSubject(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actions := []audit.AuditEvent{audit.EventBadgeMinted, audit.EventBadgeClaimed, audit.EventMintOrphaned}
	for _, a := range actions {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: registrationSubject, Action: string(a)}))
	}
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: "event:other", Action: string(audit.EventEventCreated)}))

	result, err := pub.List(context.Background(), registrationSubject)
	require.NoError(t, err)
	require.Len(t, result, 3)
	for i, a := range actions {
		assert.Equal(t, string(a), result[i].Action)
	}
}
