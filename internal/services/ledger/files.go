package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/worldgate/internal/model"
)

// Ledger file names inside the data directory
const (
	AdminsFile    = "admins.yaml"
	WhitelistFile = "whitelist.yaml"
	BanlistFile   = "banlist.yaml"
	HistoryFile   = "history.yaml"
)

type adminRecord struct {
	UUID     string          `yaml:"uuid"`
	Username string          `yaml:"username"`
	Role     model.AdminRole `yaml:"role"`
}

type whitelistRecord struct {
	UUID     string `yaml:"uuid"`
	Username string `yaml:"username"`
}

type banRecord struct {
	UUID        string     `yaml:"uuid,omitempty"`
	IP          string     `yaml:"ip,omitempty"`
	Username    string     `yaml:"username,omitempty"`
	Reason      string     `yaml:"reason"`
	Until       *time.Time `yaml:"until,omitempty"`
	UpgradeToIP bool       `yaml:"upgrade_to_ip,omitempty"`
	PerformedBy string     `yaml:"performed_by,omitempty"`
}

type banlistFile struct {
	Accounts []banRecord `yaml:"accounts"`
	IPs      []banRecord `yaml:"ips"`
}

// snapshot is the on-disk form of the ledger
type snapshot struct {
	admins    []adminRecord
	whitelist []whitelistRecord
	banlist   banlistFile
	history   []Entry
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeYAML replaces path atomically
func writeYAML(path string, in any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readSnapshot(dir string) (*snapshot, error) {
	var s snapshot
	if err := readYAML(filepath.Join(dir, AdminsFile), &s.admins); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, WhitelistFile), &s.whitelist); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, BanlistFile), &s.banlist); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, HistoryFile), &s.history); err != nil {
		return nil, err
	}
	return &s, nil
}

func writeSnapshot(dir string, s *snapshot) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	files := []struct {
		name string
		data any
	}{
		{AdminsFile, s.admins},
		{WhitelistFile, s.whitelist},
		{BanlistFile, s.banlist},
		{HistoryFile, s.history},
	}
	for _, f := range files {
		if err := writeYAML(filepath.Join(dir, f.name), f.data); err != nil {
			return err
		}
	}
	return nil
}

func parseUUID(file, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: invalid uuid %q: %w", file, value, err)
	}
	return id, nil
}

func banFromRecord(r banRecord) Ban {
	return Ban{
		Username:    r.Username,
		Reason:      r.Reason,
		Until:       r.Until,
		UpgradeToIP: r.UpgradeToIP,
		PerformedBy: r.PerformedBy,
	}
}

func recordFromBan(b Ban) banRecord {
	return banRecord{
		Username:    b.Username,
		Reason:      b.Reason,
		Until:       b.Until,
		UpgradeToIP: b.UpgradeToIP,
		PerformedBy: b.PerformedBy,
	}
}
