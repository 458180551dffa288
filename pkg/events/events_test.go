package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"socialposts/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(context.Background(), model.EVENT_COMMENT_CREATED)
	assert.Len(t, event.EventID, 36)
	assert.Equal(t, model.EVENT_COMMENT_CREATED, event.Kind)
	assert.NotZero(t, event.Timestamp)

	other := NewEvent(context.Background(), model.EVENT_COMMENT_CREATED)
	assert.NotEqual(t, event.EventID, other.EventID)
}

func TestDecode(t *testing.T) {
	event := NewEvent(context.Background(), model.EVENT_POST_DELETED)
	event.PostID = "65a1b2c3d4e5f60718293a4b"
	event.UserID = "65a1b2c3d4e5f60718293a4c"
	body, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)

	_, err = Decode([]byte(`{"event_id": "x"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDeliver(t *testing.T) {
	var handled []model.Event
	handle := func(ctx context.Context, event model.Event) error {
		handled = append(handled, event)
		return nil
	}
	ctx := context.Background()

	require.NoError(t, deliver(ctx, []byte(`not json`), handle))
	require.NoError(t, deliver(ctx, []byte(`{"event_id": "x"}`), handle))
	assert.Empty(t, handled)

	event := NewEvent(ctx, model.EVENT_COMMENT_DELETED)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, deliver(ctx, body, handle))
	require.Len(t, handled, 1)
	assert.Equal(t, event, handled[0])

	failed := errors.New("audit failed")
	err = deliver(ctx, body, func(context.Context, model.Event) error { return failed })
	assert.ErrorIs(t, err, failed)
}
