package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	logger := zap.NewNop()
	bus := NewInMemoryEventBus(logger)

	handler := newTestHandler("InvoicePaid")
	bus.Subscribe(handler, "InvoicePaid")

	event := newTestEvent("InvoicePaid")
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_PublishMultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	first := newTestHandler("PaymentRequestApproved")
	second := newTestHandler("PaymentRequestApproved")
	bus.Subscribe(first, "PaymentRequestApproved")
	bus.Subscribe(second, "PaymentRequestApproved")

	err := bus.Publish(context.Background(), newTestEvent("PaymentRequestApproved"))

	require.NoError(t, err)
	assert.Len(t, first.getHandled(), 1)
	assert.Len(t, second.getHandled(), 1)
}

func TestInMemoryEventBus_PublishUnsubscribedType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("InvoicePaid")
	bus.Subscribe(handler, "InvoicePaid")

	err := bus.Publish(context.Background(), newTestEvent("InvoiceCreated"))

	require.NoError(t, err)
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_SubscribeUsesHandlerEventTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("PaymentRequestRejected")
	bus.Subscribe(handler) // no explicit types, falls back to handler.EventTypes()

	err := bus.Publish(context.Background(), newTestEvent("PaymentRequestRejected"))

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("InvoicePaid")
	failing.setError(errors.New("notification channel down"))
	healthy := newTestHandler("InvoicePaid")
	bus.Subscribe(failing, "InvoicePaid")
	bus.Subscribe(healthy, "InvoicePaid")

	err := bus.Publish(context.Background(), newTestEvent("InvoicePaid"))

	require.NoError(t, err)
	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("InvoicePaid")
	bus.Subscribe(handler, "InvoicePaid")
	bus.Unsubscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent("InvoicePaid"))

	require.NoError(t, err)
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
}

func TestHandlerRegistry_WildcardReceivesAllEvents(t *testing.T) {
	registry := NewHandlerRegistry()

	wildcard := newTestHandler()
	specific := newTestHandler("InvoicePaid")
	registry.Register(wildcard)
	registry.Register(specific, "InvoicePaid")

	handlers := registry.GetHandlers("InvoicePaid")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("SomethingElse")
	assert.Len(t, handlers, 1)
}

func TestHandlerRegistry_GetAllHandlersDeduplicates(t *testing.T) {
	registry := NewHandlerRegistry()

	handler := newTestHandler("InvoiceCreated", "InvoicePaid")
	registry.Register(handler, "InvoiceCreated", "InvoicePaid")

	assert.Len(t, registry.GetAllHandlers(), 1)
}
