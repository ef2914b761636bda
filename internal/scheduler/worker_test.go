package scheduler

import (
	"context"
	"testing"

	"lapublica_backend/internal/events"
	"lapublica_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type captureBus struct {
	sync []events.Event
}

func (b *captureBus) Publish(context.Context, events.Event) {}

func (b *captureBus) PublishSync(_ context.Context, event events.Event) error {
	b.sync = append(b.sync, event)
	return nil
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func TestHandleNotificationOutboxDueRepublishesOnBus(t *testing.T) {
	bus := &captureBus{}
	w := &Worker{bus: bus, log: logger.New("test")}

	outboxID := uuid.New()
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: outboxID.String()})
	require.NoError(t, err)

	require.NoError(t, w.handleNotificationOutboxDue(context.Background(), task))
	require.Len(t, bus.sync, 1)

	event, ok := bus.sync[0].(events.NotificationOutboxDue)
	require.True(t, ok)
	require.Equal(t, outboxID, event.OutboxID)
}

func TestHandleNotificationOutboxDueRejectsBadPayload(t *testing.T) {
	w := &Worker{bus: &captureBus{}, log: logger.New("test")}

	bad := asynq.NewTask(TaskNotificationOutboxDue, []byte(`{"outboxId":"not-a-uuid"}`))
	require.Error(t, w.handleNotificationOutboxDue(context.Background(), bad))

	garbage := asynq.NewTask(TaskNotificationOutboxDue, []byte(`{`))
	require.Error(t, w.handleNotificationOutboxDue(context.Background(), garbage))
}
