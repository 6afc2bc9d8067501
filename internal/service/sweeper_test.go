package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-classroom/internal/model"
)

func TestSweepOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.newSession(t, ownerID, nil, 5)

	_, err := f.admission.Hold(ctx, f.req(sess, 10, nil))
	require.NoError(t, err)
	_, err = f.admission.Join(ctx, f.req(sess, 11, nil))
	require.NoError(t, err)
	_, err = f.admission.Join(ctx, f.req(sess, 12, nil))
	require.NoError(t, err)

	pending, confirmed, err := f.sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, confirmed)

	f.clock.Advance(time.Minute)
	closed, err := f.attendances.ForceCloseAll(ctx, nil, f.roles(ownerID, nil), sess.ID)
	require.NoError(t, err)
	assert.Len(t, closed, 2)
	_, err = f.admission.Join(ctx, f.req(sess, 12, nil))
	require.NoError(t, err, "user 12 reconnects after the force close")

	f.clock.Advance(10 * time.Minute)
	pending, confirmed, err = f.sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)
	assert.EqualValues(t, 1, confirmed)

	for userID, want := range map[uint64]model.ReservationState{
		10: model.ReservationReleased,
		11: model.ReservationReleased,
		12: model.ReservationConfirmed,
	} {
		res, err := f.admission.Reservation(ctx, sess.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, want, res.State, "user %d", userID)
	}

	pending, confirmed, err = f.sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending+confirmed, "a second sweep finds nothing")
}

func TestSweeperRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(f.db, f.reservations, 5*time.Millisecond, f.clock.Now, discardLogger()).Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
