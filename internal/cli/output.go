package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Account:
		o.printAccount(v)
	case Token:
		o.printToken(v)
	case Roster:
		o.printRoster(v)
	case History:
		o.printHistory(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Account response type (matches API)
type Account struct {
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Token response type
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Roster response type
type Roster struct {
	Players  []RosterEntry `json:"players"`
	Sessions int           `json:"sessions"`
}

// RosterEntry response type
type RosterEntry struct {
	Uid         uint64 `json:"uid"`
	ClientType  string `json:"client_type"`
	Alias       string `json:"alias"`
	UUID        string `json:"uuid"`
	IsModerator bool   `json:"is_moderator"`
	Role        string `json:"role,omitempty"`
}

// History is the ledger mutation log
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// HistoryEntry is one ledger mutation
type HistoryEntry struct {
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
	UUID        string    `json:"uuid,omitempty"`
	IP          string    `json:"ip,omitempty"`
	Username    string    `json:"username,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	PerformedBy string    `json:"performed_by,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAccount(a Account) {
	fmt.Printf("Account: %s (%s)\n", a.Username, a.UUID)
	fmt.Printf("Created: %s\n", a.CreatedAt.Format(time.RFC3339))
}

func (o *Output) printToken(t Token) {
	fmt.Printf("Token: %s\n", t.Token)
	fmt.Printf("Expires: %s\n", t.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printRoster(r Roster) {
	fmt.Printf("Sessions: %d\n", r.Sessions)
	fmt.Printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		tags := []string{p.ClientType}
		if p.Role != "" {
			tags = append(tags, p.Role)
		} else if p.IsModerator {
			tags = append(tags, "moderator")
		}
		fmt.Printf("  - [%d] %s (%s) %s\n", p.Uid, p.Alias, p.UUID, strings.Join(tags, ", "))
	}
}

func (o *Output) printHistory(h History) {
	if len(h.Entries) == 0 {
		fmt.Println("No ledger history")
		return
	}
	for _, e := range h.Entries {
		target := e.UUID
		if e.IP != "" {
			target = e.IP
		}
		if e.Username != "" {
			target = fmt.Sprintf("%s (%s)", e.Username, target)
		}
		line := fmt.Sprintf("%s  %-16s %s", e.At.Format(time.RFC3339), e.Kind, target)
		if e.Detail != "" {
			line += ": " + e.Detail
		}
		if e.PerformedBy != "" {
			line += " by " + e.PerformedBy
		}
		fmt.Println(line)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
