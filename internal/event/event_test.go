package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSyncDispatcherRunsHandlersInOrder(t *testing.T) {
	dispatcher := NewSyncDispatcher(zerolog.Nop())

	var order []string
	dispatcher.Subscribe(TypeSubmissionSubmitted, func(_ context.Context, _ Event) error {
		order = append(order, "first")
		return nil
	})
	dispatcher.Subscribe(TypeSubmissionSubmitted, func(_ context.Context, _ Event) error {
		order = append(order, "second")
		return nil
	})

	dispatcher.Dispatch(context.Background(), SubmissionSubmitted{SubmissionID: 1})
	require.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherRoutesByEventName(t *testing.T) {
	dispatcher := NewSyncDispatcher(zerolog.Nop())

	var gradedCalls int
	dispatcher.Subscribe(TypeSubmissionGraded, func(_ context.Context, evt Event) error {
		graded, ok := evt.(SubmissionGraded)
		require.True(t, ok)
		require.Equal(t, 17, graded.Score)
		gradedCalls++
		return nil
	})

	dispatcher.Dispatch(context.Background(), SubmissionSubmitted{SubmissionID: 1})
	dispatcher.Dispatch(context.Background(), SubmissionGraded{SubmissionID: 1, Score: 17})

	require.Equal(t, 1, gradedCalls)
}

func TestDispatchWithoutHandlersIsNoOp(t *testing.T) {
	dispatcher := NewSyncDispatcher(zerolog.Nop())
	dispatcher.Dispatch(context.Background(), MembershipCreated{MembershipID: 1})
}

func TestHandlerErrorDoesNotStopRemainingHandlers(t *testing.T) {
	dispatcher := NewSyncDispatcher(zerolog.Nop())

	var reached bool
	dispatcher.Subscribe(TypeMembershipCreated, func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	dispatcher.Subscribe(TypeMembershipCreated, func(_ context.Context, _ Event) error {
		reached = true
		return nil
	})

	dispatcher.Dispatch(context.Background(), MembershipCreated{MembershipID: 1})
	require.True(t, reached)
}

func TestAsyncDispatchSurvivesCancelledRequestContext(t *testing.T) {
	dispatcher := NewDispatcher(zerolog.Nop())

	release := make(chan struct{})
	var mu sync.Mutex
	var handlerErr error
	done := make(chan struct{})
	dispatcher.Subscribe(TypeSubmissionSubmitted, func(ctx context.Context, _ Event) error {
		<-release
		mu.Lock()
		handlerErr = ctx.Err()
		mu.Unlock()
		close(done)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Dispatch(ctx, SubmissionSubmitted{SubmissionID: 7})
	cancel()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
	dispatcher.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NoError(t, handlerErr, "handler context must outlive the request context")
}
