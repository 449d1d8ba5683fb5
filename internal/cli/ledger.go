package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/services/ledger"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Edit the ban, admin and whitelist ledger",
	}

	cmd.AddCommand(newLedgerBanCmd())
	cmd.AddCommand(newLedgerUnbanCmd())
	cmd.AddCommand(newLedgerBanIPCmd())
	cmd.AddCommand(newLedgerUnbanIPCmd())
	cmd.AddCommand(newLedgerAdminCmd())
	cmd.AddCommand(newLedgerWhitelistCmd())
	cmd.AddCommand(newLedgerHistoryCmd())

	return cmd
}

// account identifies the target of a ledger command. Without --uuid the
// account is the one --user logs in as on an insecure-mode server.
type account struct {
	id   string
	user string
}

func (a *account) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.id, "uuid", "", "Account UUID")
	cmd.Flags().StringVar(&a.user, "user", "", "Username")
}

func (a *account) resolve() (uuid.UUID, error) {
	if a.id != "" {
		id, err := uuid.Parse(a.id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid --uuid: %w", err)
		}
		return id, nil
	}
	if a.user == "" {
		return uuid.Nil, fmt.Errorf("--uuid or --user is required")
	}
	return auth.InsecureAccountUUID(a.user), nil
}

// withLedger loads the ledger, applies fn and saves it if fn succeeds
func withLedger(fn func(l *ledger.Ledger) error) error {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	l, err := ledger.Load(cfg.DataDir, clock.New(), logger)
	if err != nil {
		return fmt.Errorf("failed to load ledger from %s: %w", cfg.DataDir, err)
	}
	if err := fn(l); err != nil {
		return err
	}
	if err := l.Save(); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

func newLedgerBanCmd() *cobra.Command {
	var target account
	var reason string
	var duration time.Duration
	var upgrade bool

	cmd := &cobra.Command{
		Use:   "ban",
		Short: "Ban an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := target.resolve()
			if err != nil {
				return err
			}

			ban := ledger.Ban{
				Username:    target.user,
				Reason:      reason,
				UpgradeToIP: upgrade,
				PerformedBy: operator(),
			}
			if duration > 0 {
				ban.Until = ledger.Until(time.Now().UTC().Add(duration))
			}

			err = withLedger(func(l *ledger.Ledger) error {
				l.Ban(id, ban)
				return nil
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Banned %s", id))
			return nil
		},
	}

	target.bind(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the player")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Ban length; permanent if zero")
	cmd.Flags().BoolVar(&upgrade, "upgrade-to-ip", false, "Also ban the IP of the next login attempt")

	return cmd
}

func newLedgerUnbanCmd() *cobra.Command {
	var target account

	cmd := &cobra.Command{
		Use:   "unban",
		Short: "Lift an account ban and any IP bans upgraded from it",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := target.resolve()
			if err != nil {
				return err
			}

			err = withLedger(func(l *ledger.Ledger) error {
				if !l.Unban(id, operator()) {
					return fmt.Errorf("account %s is not banned", id)
				}
				return nil
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Unbanned %s", id))
			return nil
		},
	}

	target.bind(cmd)
	return cmd
}

func newLedgerBanIPCmd() *cobra.Command {
	var reason string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "ban-ip <ip>",
		Short: "Ban an IP address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ban := ledger.Ban{Reason: reason, PerformedBy: operator()}
			if duration > 0 {
				ban.Until = ledger.Until(time.Now().UTC().Add(duration))
			}

			err := withLedger(func(l *ledger.Ledger) error {
				l.BanIP(args[0], ban)
				return nil
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Banned %s", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the player")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Ban length; permanent if zero")

	return cmd
}

func newLedgerUnbanIPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unban-ip <ip>",
		Short: "Lift an IP ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withLedger(func(l *ledger.Ledger) error {
				if !l.UnbanIP(args[0], operator()) {
					return fmt.Errorf("%s is not banned", args[0])
				}
				return nil
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Unbanned %s", args[0]))
			return nil
		},
	}
}

func newLedgerAdminCmd() *cobra.Command {
	var target account
	var role string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Grant or revoke an administrative role",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := target.resolve()
			if err != nil {
				return err
			}

			var r *model.AdminRole
			switch model.AdminRole(role) {
			case model.RoleAdmin, model.RoleModerator:
				v := model.AdminRole(role)
				r = &v
			case "none":
			default:
				return fmt.Errorf("--role must be admin, moderator or none")
			}

			err = withLedger(func(l *ledger.Ledger) error {
				l.SetAdmin(id, target.user, r, operator())
				return nil
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Set role of %s to %s", id, role))
			return nil
		},
	}

	target.bind(cmd)
	cmd.Flags().StringVar(&role, "role", "", "admin, moderator or none (required)")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newLedgerWhitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Whitelist commands. An empty whitelist admits everyone.",
	}

	var addTarget account
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an account to the whitelist",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := addTarget.resolve()
			if err != nil {
				return err
			}
			err = withLedger(func(l *ledger.Ledger) error {
				l.AddToWhitelist(id, addTarget.user, operator())
				return nil
			})
			if err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Whitelisted %s", id))
			return nil
		},
	}
	addTarget.bind(add)

	var removeTarget account
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove an account from the whitelist",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := removeTarget.resolve()
			if err != nil {
				return err
			}
			err = withLedger(func(l *ledger.Ledger) error {
				if !l.RemoveFromWhitelist(id, operator()) {
					return fmt.Errorf("account %s is not whitelisted", id)
				}
				return nil
			})
			if err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Removed %s from the whitelist", id))
			return nil
		},
	}
	removeTarget.bind(remove)

	cmd.AddCommand(add, remove)
	return cmd
}

func newLedgerHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the ledger mutation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			var history []ledger.Entry
			err := withLedger(func(l *ledger.Ledger) error {
				history = l.History()
				return nil
			})
			if err != nil {
				return err
			}

			entries := make([]HistoryEntry, len(history))
			for i, e := range history {
				entries[i] = HistoryEntry{
					Kind:        string(e.Kind),
					At:          e.At,
					UUID:        e.UUID,
					IP:          e.IP,
					Username:    e.Username,
					Detail:      e.Detail,
					PerformedBy: e.PerformedBy,
				}
			}
			NewOutput(cfg.Output).Print(History{Entries: entries})
			return nil
		},
	}
}
