package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/solard/internal/logic"
)

type sent struct {
	topic   string
	payload []byte
	retain  bool
}

type recordingSink struct {
	msgs []sent
	err  error
}

func (s *recordingSink) Publish(topic string, payload []byte, retain bool) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, sent{topic, payload, retain})
	return nil
}

func TestInlinePublisherTopics(t *testing.T) {
	sink := &recordingSink{}
	p := NewInlinePublisher(sink)
	ts := time.Date(2026, 1, 14, 2, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Severity: logic.SeverityAlarm, Message: "hot"}))
	require.NoError(t, p.PublishState([]byte(`{"status":{}}`)))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Reason: "SIGTERM", Retained: true}))

	require.Len(t, sink.msgs, 3)
	assert.Equal(t, TopicEvents, sink.msgs[0].topic)
	assert.False(t, sink.msgs[0].retain)
	var ev Payload
	require.NoError(t, json.Unmarshal(sink.msgs[0].payload, &ev))
	assert.Equal(t, "ALARM", ev.Event.Severity)

	assert.Equal(t, TopicState, sink.msgs[1].topic)
	assert.True(t, sink.msgs[1].retain)

	assert.Equal(t, TopicSystem, sink.msgs[2].topic)
	assert.True(t, sink.msgs[2].retain)
	assert.Contains(t, string(sink.msgs[2].payload), `"reason":"SIGTERM"`)

	assert.True(t, p.IsConnected())
	assert.NoError(t, p.Close())
}

func TestInlinePublisherSinkError(t *testing.T) {
	p := NewInlinePublisher(&recordingSink{err: errors.New("closed")})
	assert.Error(t, p.PublishState([]byte("{}")))
}

var (
	_ Publisher        = (*InlinePublisher)(nil)
	_ ConnectionStatus = (*InlinePublisher)(nil)
)
