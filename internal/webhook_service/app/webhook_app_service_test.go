package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/mock"

	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/domain"
)

type MockMessageFetcher struct {
	mock.Mock
}

func (m *MockMessageFetcher) FetchMessage(ctx context.Context, grantID, messageID string) (*domain.MessageRecord, error) {
	args := m.Called(ctx, grantID, messageID)
	rec, _ := args.Get(0).(*domain.MessageRecord)
	return rec, args.Error(1)
}

type MockOrderCreator struct {
	mock.Mock
}

func (m *MockOrderCreator) CreateOrder(ctx context.Context, fields domain.ExtractedFields) (bool, error) {
	args := m.Called(ctx, fields)
	return args.Bool(0), args.Error(1)
}

func newTestService(fetcher MessageFetcher, orders OrderCreator) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(fetcher, orders, validator.New(), time.Second, logger)
}

func waitDispatched(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("order was not dispatched")
	}
}

func TestProcessNotification_InlineMessageDispatchesOrder(t *testing.T) {
	fetcher := new(MockMessageFetcher)
	orders := new(MockOrderCreator)
	svc := newTestService(fetcher, orders)

	payload := []byte(`{
		"type": "message.created",
		"data": {"object": {
			"id": "msg-1",
			"grant_id": "grant-1",
			"subject": "Fwd: lead",
			"body": "<p>Företag: Acme AB Start: v10</p><p>Url: www.acmeab.se</p><p>Resurs: jane@acmeab.se</p>"
		}}
	}`)

	expected := domain.ExtractedFields{
		OrganizationName: "Acme AB",
		Domain:           "acmeab.se",
		SalespersonEmail: "jane@acmeab.se",
	}

	done := make(chan struct{})
	orders.On("CreateOrder", mock.Anything, expected).Return(true, nil).Run(func(mock.Arguments) { close(done) }).Once()

	svc.ProcessNotification(context.Background(), payload, "trace-1")

	waitDispatched(t, done)
	orders.AssertExpectations(t)
	fetcher.AssertNotCalled(t, "FetchMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessNotification_StubPayloadFetchesMessage(t *testing.T) {
	fetcher := new(MockMessageFetcher)
	orders := new(MockOrderCreator)
	svc := newTestService(fetcher, orders)

	payload := []byte(`{
		"type": "message.created",
		"data": {"message_id": "msg-2", "grant_id": "grant-2"}
	}`)

	fetched := &domain.MessageRecord{
		ID:      "msg-2",
		GrantID: "grant-2",
		Body:    "Företag: Byggfirman Nord AB Plats: Umeå",
	}
	fetcher.On("FetchMessage", mock.Anything, "grant-2", "msg-2").Return(fetched, nil).Once()

	done := make(chan struct{})
	orders.On("CreateOrder", mock.Anything, domain.ExtractedFields{OrganizationName: "Byggfirman Nord AB"}).
		Return(true, nil).Run(func(mock.Arguments) { close(done) }).Once()

	svc.ProcessNotification(context.Background(), payload, "trace-2")

	waitDispatched(t, done)
	fetcher.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestProcessNotification_EmptyBodyRefetchKeepsPartialRecordOnFailure(t *testing.T) {
	fetcher := new(MockMessageFetcher)
	orders := new(MockOrderCreator)
	svc := newTestService(fetcher, orders)

	// Inline record has no body but a usable snippet. The refetch fails and
	// resolution degrades to the snippet.
	payload := []byte(`{
		"type": "message.updated",
		"data": {"object": {
			"id": "msg-3",
			"grant_id": "grant-3",
			"snippet": "Företag: Snabba Bud AB"
		}}
	}`)

	fetcher.On("FetchMessage", mock.Anything, "grant-3", "msg-3").
		Return(nil, context.DeadlineExceeded).Once()

	done := make(chan struct{})
	orders.On("CreateOrder", mock.Anything, domain.ExtractedFields{OrganizationName: "Snabba Bud AB"}).
		Return(true, nil).Run(func(mock.Arguments) { close(done) }).Once()

	svc.ProcessNotification(context.Background(), payload, "trace-3")

	waitDispatched(t, done)
	fetcher.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestProcessNotification_MalformedJSONIsContained(t *testing.T) {
	fetcher := new(MockMessageFetcher)
	orders := new(MockOrderCreator)
	svc := newTestService(fetcher, orders)

	svc.ProcessNotification(context.Background(), []byte(`{not json`), "trace-4")

	fetcher.AssertNotCalled(t, "FetchMessage", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestProcessNotification_IgnoredEventType(t *testing.T) {
	fetcher := new(MockMessageFetcher)
	orders := new(MockOrderCreator)
	svc := newTestService(fetcher, orders)

	payload := []byte(`{"type": "grant.expired", "data": {"grant_id": "grant-5"}}`)

	svc.ProcessNotification(context.Background(), payload, "trace-5")

	fetcher.AssertNotCalled(t, "FetchMessage", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestProcessNotification_NoLeadFieldsSkipsDispatch(t *testing.T) {
	fetcher := new(MockMessageFetcher)
	orders := new(MockOrderCreator)
	svc := newTestService(fetcher, orders)

	// Salesperson email alone never triggers an order.
	payload := []byte(`{
		"type": "message.created",
		"data": {"object": {
			"id": "msg-6",
			"grant_id": "grant-6",
			"body": "Resurs: jane@example.com"
		}}
	}`)

	svc.ProcessNotification(context.Background(), payload, "trace-6")

	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestProcessNotification_RefetchEmptyBodyRetainsOriginal(t *testing.T) {
	fetcher := new(MockMessageFetcher)
	orders := new(MockOrderCreator)
	svc := newTestService(fetcher, orders)

	payload := []byte(`{
		"type": "message.created",
		"data": {"object": {
			"id": "msg-7",
			"grant_id": "grant-7",
			"subject": "Fwd: lead",
			"snippet": "Url: www.acmeab.se"
		}}
	}`)

	// Refetch succeeds but comes back bodiless; the original record with
	// its snippet must be retained rather than discarded.
	fetcher.On("FetchMessage", mock.Anything, "grant-7", "msg-7").
		Return(&domain.MessageRecord{ID: "msg-7", GrantID: "grant-7"}, nil).Once()

	done := make(chan struct{})
	orders.On("CreateOrder", mock.Anything, domain.ExtractedFields{Domain: "acmeab.se"}).
		Return(true, nil).Run(func(mock.Arguments) { close(done) }).Once()

	svc.ProcessNotification(context.Background(), payload, "trace-7")

	waitDispatched(t, done)
	fetcher.AssertExpectations(t)
	orders.AssertExpectations(t)
}
