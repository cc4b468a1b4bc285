package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversPerTopic(t *testing.T) {
	broker := NewBroker(4, nil)
	defer broker.Close()

	classes := broker.Subscribe(TopicClasses)
	students := broker.Subscribe(TopicStudents)

	broker.Publish(Event{Topic: TopicStudents, Kind: EventCreated, ID: "s1"})
	broker.Publish(Event{Topic: TopicClasses, Kind: EventDeleted, ID: "c1"})

	select {
	case event := <-students:
		assert.Equal(t, "s1", event.ID)
		assert.Equal(t, EventCreated, event.Kind)
		assert.False(t, event.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("student event not delivered")
	}

	select {
	case event := <-classes:
		assert.Equal(t, "c1", event.ID)
	case <-time.After(time.Second):
		t.Fatal("class event not delivered")
	}

	// Cross-topic isolation: nothing else pending on either stream.
	select {
	case event := <-students:
		t.Fatalf("unexpected student event %v", event)
	default:
	}
}

func TestBrokerDropsWhenBufferFull(t *testing.T) {
	broker := NewBroker(1, nil)
	defer broker.Close()

	ch := broker.Subscribe(TopicStudents)
	broker.Publish(Event{Topic: TopicStudents, Kind: EventUpdated, ID: "s1"})
	broker.Publish(Event{Topic: TopicStudents, Kind: EventUpdated, ID: "s2"})

	event := <-ch
	assert.Equal(t, "s1", event.ID)
	select {
	case unexpected := <-ch:
		t.Fatalf("second event should have been dropped, got %v", unexpected)
	default:
	}
}

func TestBrokerCloseEndsSubscribers(t *testing.T) {
	broker := NewBroker(4, nil)
	ch := broker.Subscribe(TopicClasses)
	broker.Close()

	_, open := <-ch
	require.False(t, open)

	// Publishing after close must not panic.
	broker.Publish(Event{Topic: TopicClasses, Kind: EventCreated, ID: "c1"})
}
