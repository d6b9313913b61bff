package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
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

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
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

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case PlayerRecord:
		o.printPlayerRecord(v)
	case PlayerList:
		o.printPlayerList(v)
	case Stall:
		o.printStall(v)
	case StallList:
		o.printStallList(v)
	case Scoreboard:
		o.printScoreboard(v)
	case AuthResult:
		o.printAuthResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// PlayerRecord response type (matches API)
type PlayerRecord struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	PerStall map[string]int `json:"per_stall"`
	Total    int            `json:"total"`
	Deducted int            `json:"deducted"`
	Balance  int            `json:"balance"`
}

// PlayerList response type
type PlayerList struct {
	Players []PlayerRecord `json:"players"`
}

// Stall response type
type Stall struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Incharge    string `json:"incharge"`
}

// StallList response type
type StallList struct {
	Stalls []Stall `json:"stalls"`
}

// RankedPlayer response type
type RankedPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Total    int    `json:"total"`
	Balance  int    `json:"balance"`
	Rank     int    `json:"rank"`
	Delta    string `json:"delta,omitempty"`
}

// Scoreboard response type
type Scoreboard struct {
	State   string         `json:"state"`
	Players []RankedPlayer `json:"players"`
	Stale   bool           `json:"stale,omitempty"`
}

// AuthResult response type
type AuthResult struct {
	SessionToken string `json:"session_token"`
	Role         string `json:"role"`
	StallID      string `json:"stall_id,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayerRecord(p PlayerRecord) {
	fmt.Printf("Player: %s (%s)\n", p.Name, p.ID)
	fmt.Printf("Total: %d\n", p.Total)
	fmt.Printf("Deducted: %d\n", p.Deducted)
	fmt.Printf("Balance: %d\n", p.Balance)

	if len(p.PerStall) > 0 {
		stalls := make([]string, 0, len(p.PerStall))
		for id := range p.PerStall {
			stalls = append(stalls, id)
		}
		sort.Strings(stalls)
		fmt.Println("Per stall:")
		for _, id := range stalls {
			fmt.Printf("  %s: %d\n", id, p.PerStall[id])
		}
	}
}

func (o *Output) printPlayerList(l PlayerList) {
	fmt.Printf("Players (%d):\n", len(l.Players))
	for _, p := range l.Players {
		fmt.Printf("  - %s (%s): total %d, balance %d\n", p.Name, p.ID, p.Total, p.Balance)
	}
}

func (o *Output) printStall(s Stall) {
	fmt.Printf("Stall: %s (%s)\n", s.DisplayName, s.ID)
	fmt.Printf("Incharge: %s\n", s.Incharge)
}

func (o *Output) printStallList(l StallList) {
	fmt.Printf("Stalls (%d):\n", len(l.Stalls))
	for _, s := range l.Stalls {
		fmt.Printf("  - %s (%s), incharge %s\n", s.DisplayName, s.ID, s.Incharge)
	}
}

func (o *Output) printScoreboard(s Scoreboard) {
	fmt.Printf("Scoreboard [%s]", s.State)
	if s.Stale {
		fmt.Print(" (stale)")
	}
	fmt.Println()

	for _, p := range s.Players {
		marker := "  "
		switch p.Delta {
		case "up":
			marker = "^ "
		case "down":
			marker = "v "
		}
		fmt.Printf("%3d. %s%s (%s): %d points, balance %d\n",
			p.Rank, marker, p.Name, p.PlayerID, p.Total, p.Balance)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	fmt.Printf("Logged in as: %s\n", a.Role)
	if a.StallID != "" {
		fmt.Printf("Stall: %s\n", a.StallID)
	}
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
