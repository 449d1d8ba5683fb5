package cli

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/services/ledger"
	"github.com/mcoot/worldgate/internal/testutil"
)

func execute(t *testing.T, dataDir string, args ...string) error {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--output", "json"}, args...))
	return cmd.Execute()
}

func load(t *testing.T, dataDir string) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Load(dataDir, clock.New(), testutil.NopLogger())
	require.NoError(t, err)
	return l
}

func TestAccountResolve(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		account account
		want    uuid.UUID
		wantErr string
	}{
		{"uuid wins", account{id: id.String(), user: "alice"}, id, ""},
		{"user derives insecure uuid", account{user: "alice"}, auth.InsecureAccountUUID("alice"), ""},
		{"bad uuid", account{id: "nope"}, uuid.Nil, "invalid --uuid"},
		{"neither", account{}, uuid.Nil, "--uuid or --user is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.account.resolve()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLedgerBanAndUnban(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("USER", "ops")
	id := auth.InsecureAccountUUID("mallory")

	require.NoError(t, execute(t, dir, "ledger", "ban", "--user", "mallory", "--reason", "griefing", "--duration", "1h", "--upgrade-to-ip"))

	_, err := load(t, dir).CheckLogin(model.Identity{UUID: id, Username: "mallory"}, "")
	require.ErrorIs(t, err, model.ErrBanned)

	history := load(t, dir).History()
	require.Len(t, history, 1)
	assert.Equal(t, ledger.OpBan, history[0].Kind)
	assert.Equal(t, "ops", history[0].PerformedBy)

	require.NoError(t, execute(t, dir, "ledger", "unban", "--user", "mallory"))
	_, err = load(t, dir).CheckLogin(model.Identity{UUID: id, Username: "mallory"}, "")
	assert.NoError(t, err)

	err = execute(t, dir, "ledger", "unban", "--user", "mallory")
	assert.ErrorContains(t, err, "is not banned")
}

func TestLedgerTimedBanExpires(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()

	require.NoError(t, execute(t, dir, "ledger", "ban", "--uuid", id.String(), "--duration", "1ms"))
	time.Sleep(5 * time.Millisecond)

	_, err := load(t, dir).CheckLogin(model.Identity{UUID: id}, "")
	assert.NoError(t, err)
}

func TestLedgerIPBan(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, execute(t, dir, "ledger", "ban-ip", "10.0.0.9", "--reason", "spam"))
	ban, ok := load(t, dir).IPBan("10.0.0.9")
	require.True(t, ok)
	assert.Equal(t, "spam", ban.Reason)
	assert.Nil(t, ban.Until)

	require.NoError(t, execute(t, dir, "ledger", "unban-ip", "10.0.0.9"))
	_, ok = load(t, dir).IPBan("10.0.0.9")
	assert.False(t, ok)
}

func TestLedgerAdminRoles(t *testing.T) {
	dir := t.TempDir()
	id := auth.InsecureAccountUUID("alice")

	require.NoError(t, execute(t, dir, "ledger", "admin", "--user", "alice", "--role", "moderator"))
	role := load(t, dir).LookupAdmin(id)
	require.NotNil(t, role)
	assert.Equal(t, model.RoleModerator, *role)

	require.NoError(t, execute(t, dir, "ledger", "admin", "--user", "alice", "--role", "none"))
	assert.Nil(t, load(t, dir).LookupAdmin(id))

	err := execute(t, dir, "ledger", "admin", "--user", "alice", "--role", "owner")
	assert.ErrorContains(t, err, "--role must be")
}

func TestLedgerWhitelist(t *testing.T) {
	dir := t.TempDir()
	alice := model.Identity{UUID: auth.InsecureAccountUUID("alice"), Username: "alice"}
	bob := model.Identity{UUID: auth.InsecureAccountUUID("bob"), Username: "bob"}

	require.NoError(t, execute(t, dir, "ledger", "whitelist", "add", "--user", "alice"))

	l := load(t, dir)
	_, err := l.CheckLogin(alice, "")
	assert.NoError(t, err)
	_, err = l.CheckLogin(bob, "")
	assert.ErrorIs(t, err, model.ErrNotOnWhitelist)

	require.NoError(t, execute(t, dir, "ledger", "whitelist", "remove", "--user", "alice"))
	_, err = load(t, dir).CheckLogin(bob, "")
	assert.NoError(t, err)

	err = execute(t, dir, "ledger", "whitelist", "remove", "--user", "alice")
	assert.ErrorContains(t, err, "is not whitelisted")
}
