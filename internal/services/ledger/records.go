package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/worldgate/internal/model"
)

// Ban bars an account, or an IP address, from logging in
type Ban struct {
	Username    string
	Reason      string
	Until       *time.Time // nil for a permanent ban
	UpgradeToIP bool       // extend to the IP of the next login attempt
	PerformedBy string
}

// ActiveAt reports whether the ban is in force at t
func (b Ban) ActiveAt(t time.Time) bool {
	return b.Until == nil || t.Before(*b.Until)
}

// IPBan is a ban on an address, optionally linked to the account it came from
type IPBan struct {
	Ban
	Account *uuid.UUID
}

// Admin is an account holding an administrative role
type Admin struct {
	Username string
	Role     model.AdminRole
}

// OpKind names a ledger mutation
type OpKind string

const (
	OpBan             OpKind = "ban"
	OpBanIP           OpKind = "ban_ip"
	OpUnban           OpKind = "unban"
	OpUnbanIP         OpKind = "unban_ip"
	OpUpgradeToIPBan  OpKind = "upgrade_to_ip_ban"
	OpSetAdmin        OpKind = "set_admin"
	OpRemoveAdmin     OpKind = "remove_admin"
	OpWhitelistAdd    OpKind = "whitelist_add"
	OpWhitelistRemove OpKind = "whitelist_remove"
)

// Entry is one record in the mutation log
type Entry struct {
	Kind        OpKind    `yaml:"kind"`
	At          time.Time `yaml:"at"`
	UUID        string    `yaml:"uuid,omitempty"`
	IP          string    `yaml:"ip,omitempty"`
	Username    string    `yaml:"username,omitempty"`
	Detail      string    `yaml:"detail,omitempty"`
	PerformedBy string    `yaml:"performed_by,omitempty"`
}
