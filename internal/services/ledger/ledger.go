package ledger

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/events"
	"github.com/mcoot/worldgate/internal/model"
)

// Ledger holds the admin list, whitelist and ban lists. Reads are safe from
// any goroutine. Login-driven mutations are queued and applied by
// ApplyBanOperations, which the tick loop calls once per tick.
type Ledger struct {
	mu        sync.RWMutex
	admins    map[uuid.UUID]Admin
	whitelist map[uuid.UUID]string
	bans      map[uuid.UUID]Ban
	ipBans    map[string]IPBan
	history   []Entry

	upgrades *events.Bus[model.BanUpgrade]
	dataDir  string
	clock    clock.Clock
	logger   *slog.Logger
}

// New creates an empty ledger. If dataDir is empty the ledger is never persisted.
func New(dataDir string, clock clock.Clock, logger *slog.Logger) *Ledger {
	return &Ledger{
		admins:    make(map[uuid.UUID]Admin),
		whitelist: make(map[uuid.UUID]string),
		bans:      make(map[uuid.UUID]Ban),
		ipBans:    make(map[string]IPBan),
		upgrades:  events.NewBus[model.BanUpgrade](),
		dataDir:   dataDir,
		clock:     clock,
		logger:    logger.With(slog.String("component", "ledger")),
	}
}

// Load creates a ledger from the files in dataDir. Missing files are empty.
func Load(dataDir string, clock clock.Clock, logger *slog.Logger) (*Ledger, error) {
	l := New(dataDir, clock, logger)
	snap, err := readSnapshot(dataDir)
	if err != nil {
		return nil, err
	}

	for _, a := range snap.admins {
		id, err := parseUUID(AdminsFile, a.UUID)
		if err != nil {
			return nil, err
		}
		if a.Role.Rank() == 0 {
			return nil, fmt.Errorf("%s: unknown role %q for %s", AdminsFile, a.Role, a.UUID)
		}
		l.admins[id] = Admin{Username: a.Username, Role: a.Role}
	}
	for _, w := range snap.whitelist {
		id, err := parseUUID(WhitelistFile, w.UUID)
		if err != nil {
			return nil, err
		}
		l.whitelist[id] = w.Username
	}
	for _, b := range snap.banlist.Accounts {
		id, err := parseUUID(BanlistFile, b.UUID)
		if err != nil {
			return nil, err
		}
		l.bans[id] = banFromRecord(b)
	}
	for _, b := range snap.banlist.IPs {
		ban := IPBan{Ban: banFromRecord(b)}
		if b.UUID != "" {
			id, err := parseUUID(BanlistFile, b.UUID)
			if err != nil {
				return nil, err
			}
			ban.Account = &id
		}
		l.ipBans[b.IP] = ban
	}
	l.history = snap.history

	l.logger.Info("ledger loaded",
		slog.String("dir", dataDir),
		slog.Int("admins", len(l.admins)),
		slog.Int("whitelist", len(l.whitelist)),
		slog.Int("bans", len(l.bans)),
		slog.Int("ip_bans", len(l.ipBans)))
	return l, nil
}

// Save writes the ledger to its data directory
func (l *Ledger) Save() error {
	if l.dataDir == "" {
		return nil
	}
	l.mu.RLock()
	snap := l.snapshotLocked()
	l.mu.RUnlock()
	return writeSnapshot(l.dataDir, snap)
}

func (l *Ledger) snapshotLocked() *snapshot {
	var s snapshot
	for id, a := range l.admins {
		s.admins = append(s.admins, adminRecord{UUID: id.String(), Username: a.Username, Role: a.Role})
	}
	for id, name := range l.whitelist {
		s.whitelist = append(s.whitelist, whitelistRecord{UUID: id.String(), Username: name})
	}
	for id, b := range l.bans {
		r := recordFromBan(b)
		r.UUID = id.String()
		s.banlist.Accounts = append(s.banlist.Accounts, r)
	}
	for ip, b := range l.ipBans {
		r := recordFromBan(b.Ban)
		r.IP = ip
		if b.Account != nil {
			r.UUID = b.Account.String()
		}
		s.banlist.IPs = append(s.banlist.IPs, r)
	}
	s.history = slices.Clone(l.history)

	slices.SortFunc(s.admins, func(a, b adminRecord) int { return cmp.Compare(a.UUID, b.UUID) })
	slices.SortFunc(s.whitelist, func(a, b whitelistRecord) int { return cmp.Compare(a.UUID, b.UUID) })
	slices.SortFunc(s.banlist.Accounts, func(a, b banRecord) int { return cmp.Compare(a.UUID, b.UUID) })
	slices.SortFunc(s.banlist.IPs, func(a, b banRecord) int { return cmp.Compare(a.IP, b.IP) })
	return &s
}

// LookupAdmin returns the role held by an account, or nil
func (l *Ledger) LookupAdmin(id uuid.UUID) *model.AdminRole {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.admins[id]
	if !ok {
		return nil
	}
	role := a.Role
	return &role
}

// CheckLogin is the ledger gate for a freshly authenticated identity. It
// returns the account's admin role (nil for none) or a RegisterError.
// Admins bypass bans and the whitelist. The whitelist is only enforced
// when it has entries.
func (l *Ledger) CheckLogin(identity model.Identity, ip string) (*model.AdminRole, error) {
	now := l.clock.Now()

	l.mu.RLock()
	admin, isAdmin := l.admins[identity.UUID]
	ipBan, ipBanned := l.ipBans[ip]
	ban, banned := l.bans[identity.UUID]
	_, whitelisted := l.whitelist[identity.UUID]
	whitelistEnforced := len(l.whitelist) > 0
	l.mu.RUnlock()

	if isAdmin {
		role := admin.Role
		return &role, nil
	}

	ipBanActive := ip != "" && ipBanned && ipBan.ActiveAt(now)
	if ipBanActive {
		return nil, model.NewBannedError(ipBan.Reason, ipBan.Until)
	}

	if banned && ban.ActiveAt(now) {
		if ban.UpgradeToIP && ip != "" {
			l.EnqueueBanUpgrade(ip, identity.UUID, identity.Username)
		}
		return nil, model.NewBannedError(ban.Reason, ban.Until)
	}

	if whitelistEnforced && !whitelisted {
		return nil, &model.RegisterError{Code: model.RegisterNotOnWhitelist}
	}

	return nil, nil
}

// EnqueueBanUpgrade queues extending an account ban to ip. Safe to call
// concurrently; the upgrade is applied by the next ApplyBanOperations.
func (l *Ledger) EnqueueBanUpgrade(ip string, id uuid.UUID, username string) {
	l.upgrades.Emit(model.BanUpgrade{IP: ip, UUID: id, Username: username})
}

// PendingUpgrades returns the number of queued ban upgrades
func (l *Ledger) PendingUpgrades() int {
	return l.upgrades.Len()
}

// ApplyBanOperations applies every queued ban upgrade and persists the
// ledger if anything changed. Returns the number of upgrades applied.
func (l *Ledger) ApplyBanOperations() int {
	queued := l.upgrades.Drain()
	if len(queued) == 0 {
		return 0
	}

	now := l.clock.Now()
	applied := 0

	l.mu.Lock()
	for _, up := range queued {
		ban, ok := l.bans[up.UUID]
		if !ok || !ban.UpgradeToIP || !ban.ActiveAt(now) {
			// Unbanned or expired since the login was checked
			continue
		}
		if existing, ok := l.ipBans[up.IP]; ok && existing.ActiveAt(now) {
			continue
		}
		account := up.UUID
		l.ipBans[up.IP] = IPBan{Ban: ban, Account: &account}
		l.history = append(l.history, Entry{
			Kind:     OpUpgradeToIPBan,
			At:       now,
			UUID:     up.UUID.String(),
			IP:       up.IP,
			Username: up.Username,
			Detail:   ban.Reason,
		})
		applied++
	}
	l.mu.Unlock()

	if applied == 0 {
		return 0
	}

	l.logger.Info("ban upgrades applied", slog.Int("count", applied))
	if err := l.Save(); err != nil {
		l.logger.Warn("failed to persist ban upgrades", slog.Any("error", err))
	}
	return applied
}

// Ban bans an account
func (l *Ledger) Ban(id uuid.UUID, ban Ban) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bans[id] = ban
	l.record(Entry{Kind: OpBan, UUID: id.String(), Username: ban.Username, Detail: ban.Reason, PerformedBy: ban.PerformedBy})
}

// BanIP bans an address
func (l *Ledger) BanIP(ip string, ban Ban) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ipBans[ip] = IPBan{Ban: ban}
	l.record(Entry{Kind: OpBanIP, IP: ip, Detail: ban.Reason, PerformedBy: ban.PerformedBy})
}

// Unban lifts an account ban along with any IP bans upgraded from it.
// Returns false if the account was not banned.
func (l *Ledger) Unban(id uuid.UUID, performedBy string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	ban, ok := l.bans[id]
	if !ok {
		return false
	}
	delete(l.bans, id)
	for ip, b := range l.ipBans {
		if b.Account != nil && *b.Account == id {
			delete(l.ipBans, ip)
		}
	}
	l.record(Entry{Kind: OpUnban, UUID: id.String(), Username: ban.Username, PerformedBy: performedBy})
	return true
}

// UnbanIP lifts an IP ban. Returns false if the address was not banned.
func (l *Ledger) UnbanIP(ip, performedBy string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ipBans[ip]; !ok {
		return false
	}
	delete(l.ipBans, ip)
	l.record(Entry{Kind: OpUnbanIP, IP: ip, PerformedBy: performedBy})
	return true
}

// SetAdmin grants role to an account, or revokes any role when role is nil
func (l *Ledger) SetAdmin(id uuid.UUID, username string, role *model.AdminRole, performedBy string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if role == nil {
		delete(l.admins, id)
		l.record(Entry{Kind: OpRemoveAdmin, UUID: id.String(), Username: username, PerformedBy: performedBy})
		return
	}
	l.admins[id] = Admin{Username: username, Role: *role}
	l.record(Entry{Kind: OpSetAdmin, UUID: id.String(), Username: username, Detail: string(*role), PerformedBy: performedBy})
}

// AddToWhitelist adds an account to the whitelist
func (l *Ledger) AddToWhitelist(id uuid.UUID, username, performedBy string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.whitelist[id] = username
	l.record(Entry{Kind: OpWhitelistAdd, UUID: id.String(), Username: username, PerformedBy: performedBy})
}

// RemoveFromWhitelist removes an account from the whitelist
func (l *Ledger) RemoveFromWhitelist(id uuid.UUID, performedBy string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	username, ok := l.whitelist[id]
	if !ok {
		return false
	}
	delete(l.whitelist, id)
	l.record(Entry{Kind: OpWhitelistRemove, UUID: id.String(), Username: username, PerformedBy: performedBy})
	return true
}

// History returns a copy of the mutation log, oldest first
func (l *Ledger) History() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.history)
}

// IPBan returns the ban on ip, if any
func (l *Ledger) IPBan(ip string) (IPBan, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.ipBans[ip]
	return b, ok
}

// record appends to the mutation log. Caller holds mu.
func (l *Ledger) record(e Entry) {
	e.At = l.clock.Now()
	l.history = append(l.history, e)
}

// Until is a helper for building timed bans
func Until(t time.Time) *time.Time {
	return &t
}
