package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/session"
	"github.com/mcoot/worldgate/internal/testutil"
)

func entry(uid model.Uid, kind model.ClientKind, alias string) Entry {
	return Entry{
		Uid:        uid,
		ClientType: model.ClientType{Kind: kind},
		Info:       model.PlayerInfo{PlayerAlias: alias, IsOnline: true, UUID: uuid.New()},
	}
}

func TestInsertAndSnapshot(t *testing.T) {
	r := New()
	a := entry(1, model.KindGame, "alice")
	b := entry(2, model.KindSilentSpectator, "admin")
	require.NoError(t, r.Insert(a))
	require.NoError(t, r.Insert(b))

	snap := r.Snapshot()
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, map[model.Uid]model.PlayerInfo{1: a.Info}, snap.Players)
	assert.Equal(t, model.Uid(1), snap.OldByUUID[a.Info.UUID])
	assert.Equal(t, model.Uid(2), snap.OldByUUID[b.Info.UUID])
}

func TestSnapshotIsImmutable(t *testing.T) {
	r := New()
	require.NoError(t, r.Insert(entry(1, model.KindGame, "alice")))
	snap := r.Snapshot()

	require.NoError(t, r.Insert(entry(2, model.KindGame, "bob")))
	r.Remove(1)

	assert.Equal(t, 1, snap.Count)
	assert.Len(t, snap.Players, 1)
	assert.Len(t, snap.OldByUUID, 1)
}

func TestInsertRejectsDuplicateAccount(t *testing.T) {
	r := New()
	a := entry(1, model.KindGame, "alice")
	require.NoError(t, r.Insert(a))

	dup := a
	dup.Uid = 2
	assert.ErrorIs(t, r.Insert(dup), model.ErrDuplicateAccount)

	assert.ErrorIs(t, r.Insert(entry(1, model.KindGame, "bob")), model.ErrAlreadyInRoster)
	assert.Equal(t, 1, r.Len())
}

func TestRemoveFreesAccount(t *testing.T) {
	r := New()
	a := entry(1, model.KindGame, "alice")
	require.NoError(t, r.Insert(a))

	removed, ok := r.Remove(1)
	require.True(t, ok)
	assert.Equal(t, a, removed)
	_, ok = r.LookupAccount(a.Info.UUID)
	assert.False(t, ok)

	a.Uid = 2
	assert.NoError(t, r.Insert(a))
}

func TestEntriesOrderedByUid(t *testing.T) {
	r := New()
	for _, uid := range []model.Uid{5, 2, 9} {
		require.NoError(t, r.Insert(entry(uid, model.KindGame, "p")))
	}
	var uids []model.Uid
	for _, e := range r.Entries() {
		uids = append(uids, e.Uid)
	}
	assert.Equal(t, []model.Uid{2, 5, 9}, uids)
}

func TestBroadcastPreservesOrderPerTarget(t *testing.T) {
	store := session.NewStore()
	var trs []*testutil.RecordingTransport
	var targets []*session.Client
	for i := 0; i < 8; i++ {
		tr := testutil.NewRecordingTransport()
		trs = append(trs, tr)
		targets = append(targets, store.Create(tr, model.ClientType{Kind: model.KindGame}, "", time.Time{}))
	}

	var msgs []session.Prepared
	for uid := model.Uid(1); uid <= 5; uid++ {
		p, err := session.Prepare(model.PlayerListAdd{Uid: uid})
		require.NoError(t, err)
		msgs = append(msgs, p)
	}

	b := NewBroadcaster(3, testutil.NopLogger())
	assert.Equal(t, 0, b.Broadcast(context.Background(), targets, msgs))

	for _, tr := range trs {
		adds := testutil.MessagesOf[model.PlayerListAdd](t, tr)
		require.Len(t, adds, 5)
		for i, add := range adds {
			assert.Equal(t, model.Uid(i+1), add.Uid)
		}
	}
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	store := session.NewStore()
	bad := testutil.NewRecordingTransport()
	bad.WriteErr = errors.New("broken pipe")
	good := testutil.NewRecordingTransport()
	targets := []*session.Client{
		store.Create(bad, model.ClientType{Kind: model.KindGame}, "", time.Time{}),
		store.Create(good, model.ClientType{Kind: model.KindGame}, "", time.Time{}),
	}
	p, err := session.Prepare(model.PlayerListRemove{Uid: 1})
	require.NoError(t, err)

	failed := NewBroadcaster(0, testutil.NopLogger()).Broadcast(context.Background(), targets, []session.Prepared{p})

	assert.Equal(t, 1, failed)
	assert.Len(t, good.Messages(t), 1)
}
