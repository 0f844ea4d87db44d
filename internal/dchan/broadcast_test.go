package dchan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gordian-engine/eyeball/internal/dchan"
	"github.com/stretchr/testify/require"
)

func TestNewBroadcast_panicsOnZeroCapacity(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		_ = dchan.NewBroadcast[int](0)
	})
}

func TestSender_Send_noReceivers(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)

	n, err := tx.Send(1)
	require.ErrorIs(t, err, dchan.ErrNoReceivers)
	require.Zero(t, n)

	// A value sent without receivers is not retained for later receivers.
	rx := tx.Subscribe()
	_, err = rx.TryRecv()
	require.ErrorIs(t, err, dchan.ErrEmpty)
}

func TestSender_Send_reportsReceiverCount(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	rx1 := tx.Subscribe()
	_ = tx.Subscribe()

	n, err := tx.Send(1)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	rx1.Close()
	rx1.Close() // Idempotent.
	require.Equal(t, 1, tx.ReceiverCount())

	n, err = tx.Send(2)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestReceiver_Recv_inOrder(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](4)
	rx := tx.Subscribe()

	for i := range 4 {
		_, err := tx.Send(i)
		require.NoError(t, err)
	}

	ctx := context.Background()
	for i := range 4 {
		res, err := rx.Recv(ctx)
		require.NoError(t, err)
		require.Zero(t, res.Lagged)
		require.Equal(t, i, res.Val)
	}

	_, err := rx.TryRecv()
	require.ErrorIs(t, err, dchan.ErrEmpty)
}

func TestReceiver_Recv_onlySeesLaterValues(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[string](1)
	early := tx.Subscribe()

	_, err := tx.Send("first")
	require.NoError(t, err)

	late := tx.Subscribe()
	_, err = late.TryRecv()
	require.ErrorIs(t, err, dchan.ErrEmpty)

	_, err = tx.Send("second")
	require.NoError(t, err)

	res, err := late.TryRecv()
	require.NoError(t, err)
	require.Equal(t, "second", res.Val)

	// The early receiver fell behind a capacity-1 channel.
	res, err = early.TryRecv()
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Lagged)

	res, err = early.TryRecv()
	require.NoError(t, err)
	require.Zero(t, res.Lagged)
	require.Equal(t, "second", res.Val)
}

func TestReceiver_Recv_lagged(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](2)
	rx := tx.Subscribe()

	for i := range 10 {
		_, err := tx.Send(i)
		require.NoError(t, err)
	}

	ctx := context.Background()

	// Positions 0 through 7 were overwritten.
	res, err := rx.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(8), res.Lagged)

	res, err = rx.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, res.Val)

	res, err = rx.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, res.Val)
}

func TestReceiver_Recv_lagIsPerReceiver(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	fast := tx.Subscribe()
	slow := tx.Subscribe()

	for i := range 3 {
		_, err := tx.Send(i)
		require.NoError(t, err)

		res, err := fast.TryRecv()
		require.NoError(t, err)
		require.Equal(t, i, res.Val)
	}

	res, err := slow.TryRecv()
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.Lagged)
}

func TestReceiver_Recv_wakesOnSend(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)

	const nReceivers = 8
	got := make(chan int, nReceivers)
	var wg sync.WaitGroup
	ctx := context.Background()
	for range nReceivers {
		rx := tx.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := rx.Recv(ctx)
			if err != nil {
				return
			}
			got <- res.Val
		}()
	}

	_, err := tx.Send(42)
	require.NoError(t, err)

	wg.Wait()
	close(got)

	n := 0
	for v := range got {
		require.Equal(t, 42, v)
		n++
	}
	require.Equal(t, nReceivers, n)
}

func TestReceiver_Recv_drainsThenClosed(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	rx := tx.Subscribe()

	_, err := tx.Send(1)
	require.NoError(t, err)
	tx.Close()
	tx.Close() // Idempotent.

	_, err = tx.Send(2)
	require.ErrorIs(t, err, dchan.ErrClosed)

	ctx := context.Background()
	res, err := rx.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Val)

	for range 2 {
		_, err = rx.Recv(ctx)
		require.ErrorIs(t, err, dchan.ErrClosed)
	}
}

func TestReceiver_Recv_wakesOnSenderClose(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	rx := tx.Subscribe()

	errCh := make(chan error, 1)
	go func() {
		_, err := rx.Recv(context.Background())
		errCh <- err
	}()

	tx.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, dchan.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("receiver did not observe close")
	}
}

func TestReceiver_Recv_wakesOnReceiverClose(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	rx := tx.Subscribe()

	errCh := make(chan error, 1)
	go func() {
		_, err := rx.Recv(context.Background())
		errCh <- err
	}()

	rx.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, dchan.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("receiver did not observe its own close")
	}

	require.Zero(t, tx.ReceiverCount())
}

func TestReceiver_Recv_contextCancel(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	rx := tx.Subscribe()

	cause := errors.New("stop waiting")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cause)

	_, err := rx.Recv(ctx)
	require.ErrorIs(t, err, cause)

	// Still usable after the cancelled receive.
	_, err = tx.Send(3)
	require.NoError(t, err)

	res, err := rx.Recv(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Val)
}

func TestSender_Subscribe_afterClose(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	tx.Close()

	rx := tx.Subscribe()
	_, err := rx.TryRecv()
	require.ErrorIs(t, err, dchan.ErrClosed)

	// Not counted, and closing it does not disturb the count.
	require.Zero(t, tx.ReceiverCount())
	rx.Close()
	require.Zero(t, tx.ReceiverCount())

	_, err = rx.Recv(context.Background())
	require.ErrorIs(t, err, dchan.ErrClosed)
}

func TestSender_Subscribe_afterCloseKeepsEarlierCount(t *testing.T) {
	t.Parallel()

	tx := dchan.NewBroadcast[int](1)
	early := tx.Subscribe()
	tx.Close()

	late := tx.Subscribe()
	require.Equal(t, 1, tx.ReceiverCount())

	late.Close()
	require.Equal(t, 1, tx.ReceiverCount())

	early.Close()
	require.Zero(t, tx.ReceiverCount())
}
