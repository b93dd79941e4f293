package publisher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_resolver/internal/domain"
	"content_resolver/internal/utils"
)

func TestNewContentMessage(t *testing.T) {
	now := time.Date(2024, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	res := &domain.Resolution{
		RequestID: "req-1",
		Kind:      domain.SourceVideo,
		Content:   &domain.Content{ID: 9, URL: "https://www.youtube.com/watch?v=x", Type: domain.ContentVideo, Title: utils.Ptr("T")},
		Service:   &domain.Service{ID: 1, Name: domain.ServiceVideoPlatform},
		Author:    &domain.Author{ID: 4, Name: "Channel"},
		Creator:   &domain.CreatorResult{Name: "Channel", Method: domain.MethodAPI, Confidence: 0.95},
	}

	msg, err := NewContentMessage(res, now)
	require.NoError(t, err)

	assert.Equal(t, EventContentResolved, msg.Event)
	assert.Equal(t, "req-1", msg.RequestID)
	assert.Equal(t, int64(9), msg.Content.ID)
	assert.Equal(t, domain.MethodAPI, msg.Method)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())

	body, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"creator_confidence":0.95`)
	assert.Contains(t, string(body), `"name":"video-platform"`)
}

func TestNewContentMessage_WithoutCreator(t *testing.T) {
	msg, err := NewContentMessage(&domain.Resolution{Content: &domain.Content{ID: 1}}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, msg.Method)
	assert.Nil(t, msg.Author)

	_, err = NewContentMessage(&domain.Resolution{}, time.Now())
	assert.Error(t, err)
	_, err = NewContentMessage(nil, time.Now())
	assert.Error(t, err)
}
