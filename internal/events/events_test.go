package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalysisCompleted(t *testing.T) {
	in := map[string]string{"sector": "fintech"}
	out := map[string]any{"num_articles": 3}

	ev, err := NewAnalysisCompleted("news_overview", "news_overview-0", in, out)
	require.NoError(t, err)

	_, err = uuid.Parse(ev.ID)
	assert.NoError(t, err)
	assert.Equal(t, TypeAnalysisCompleted, ev.Type)
	assert.Equal(t, "news_overview", ev.Collection)
	assert.JSONEq(t, `{"sector":"fintech"}`, string(ev.Input))
	assert.JSONEq(t, `{"num_articles":3}`, string(ev.Output))
	assert.False(t, ev.CreatedAt.IsZero())

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"record_id":"news_overview-0"`)
}

func TestNewAnalysisCompleted_UniqueIDs(t *testing.T) {
	a, err := NewAnalysisCompleted("swot_analysis", "", nil, nil)
	require.NoError(t, err)
	b, err := NewAnalysisCompleted("swot_analysis", "", nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewAnalysisCompleted_Unmarshalable(t *testing.T) {
	_, err := NewAnalysisCompleted("swot_analysis", "", make(chan int), nil)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "cofounder.test", nil)
	assert.ErrorContains(t, err, "connect to NATS")
}
