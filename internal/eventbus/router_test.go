package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/domain"
)

type fakeQueues struct {
	appended map[string][][]byte
	err      error
}

func newFakeQueues() *fakeQueues {
	return &fakeQueues{appended: make(map[string][][]byte)}
}

func (f *fakeQueues) Append(_ context.Context, queue string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended[queue] = append(f.appended[queue], body)
	return "1-0", nil
}

func encode(t *testing.T, source, detailType string) []byte {
	t.Helper()

	event, err := domain.NewEvent("NexusMarineBus", source, detailType, map[string]string{"k": "v"})
	require.NoError(t, err)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func newTestRouter(queues QueueWriter) *Router {
	return NewRouter(DefaultRules("queue:critical-alerts", "queue:crm-sync"), queues, zap.NewNop())
}

func TestRouter_RoutesCriticalAlertToAlertsQueue(t *testing.T) {
	queues := newFakeQueues()
	router := newTestRouter(queues)

	raw := encode(t, domain.SourceTelemetry, domain.DetailTypeCriticalAlert)
	require.NoError(t, router.Route(context.Background(), raw))

	require.Len(t, queues.appended["queue:critical-alerts"], 1)
	assert.Equal(t, raw, queues.appended["queue:critical-alerts"][0], "router delivers a verbatim copy")
	assert.Empty(t, queues.appended["queue:crm-sync"])
}

func TestRouter_RoutesOrderCreatedToCRMSyncQueue(t *testing.T) {
	queues := newFakeQueues()
	router := newTestRouter(queues)

	raw := encode(t, domain.SourceOrders, domain.DetailTypeOrderCreated)
	require.NoError(t, router.Route(context.Background(), raw))

	require.Len(t, queues.appended["queue:crm-sync"], 1)
	assert.Empty(t, queues.appended["queue:critical-alerts"])
}

func TestRouter_MatchIsExactOnBothTags(t *testing.T) {
	queues := newFakeQueues()
	router := newTestRouter(queues)

	cases := [][2]string{
		{domain.SourceTelemetry, domain.DetailTypeOrderCreated},
		{domain.SourceOrders, domain.DetailTypeCriticalAlert},
		{"nexus.marine.telemetry.v2", domain.DetailTypeCriticalAlert},
		{domain.SourceOrders, "Order.Updated"},
	}

	for _, c := range cases {
		require.NoError(t, router.Route(context.Background(), encode(t, c[0], c[1])))
	}

	assert.Empty(t, queues.appended, "unmatched events are dropped, not queued")
}

func TestRouter_MatchNeverInspectsPayload(t *testing.T) {
	router := newTestRouter(newFakeQueues())

	event := domain.Event{
		Source:     domain.SourceOrders,
		DetailType: domain.DetailTypeOrderCreated,
		Detail:     json.RawMessage(`"not even an object"`),
	}

	assert.Equal(t, []string{"queue:crm-sync"}, router.Match(event))
}

func TestRouter_DeliveryFailureSurfaces(t *testing.T) {
	queues := newFakeQueues()
	queues.err = errors.New("stream unavailable")
	router := newTestRouter(queues)

	err := router.Route(context.Background(), encode(t, domain.SourceOrders, domain.DetailTypeOrderCreated))
	require.Error(t, err, "failed delivery keeps the bus message unacked")
}

func TestRouter_DropsUnparseableEvent(t *testing.T) {
	queues := newFakeQueues()
	router := newTestRouter(queues)

	require.NoError(t, router.Route(context.Background(), []byte("garbage")), "poison input is dropped, not retried")
	assert.Empty(t, queues.appended)
}
