package session

import (
	"fmt"
	"strings"

	"candybowl/internal/agent"
	"candybowl/internal/tools"
)

// Mode is fixed when a session starts and never changes.
type Mode string

const (
	ModeRequest Mode = "request"
	ModeHaggle  Mode = "haggle"
	ModeRestock Mode = "restock"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRequest, ModeHaggle, ModeRestock:
		return m, nil
	}
	return "", fmt.Errorf("unknown session mode %q", s)
}

// ModeSpec is one row of the mode table.
type ModeSpec struct {
	Mode         Mode
	SystemPrompt string
	Tools        []tools.Name
	// Opening, when set, is sent as the first user turn at creation and its
	// reply is returned with the new session.
	Opening string
}

// ModeTable builds the per-mode prompt and tool configuration.
func ModeTable(info ShopInfo, restockCanPurchase bool) map[Mode]ModeSpec {
	base := basicInfo(info)
	restockTools := []tools.Name{tools.GetInventory, tools.GetNotes, tools.SearchProduct, tools.GetBalance}
	if restockCanPurchase {
		restockTools = append(restockTools, tools.StockItem)
	}
	return map[Mode]ModeSpec{
		ModeRequest: {
			Mode:         ModeRequest,
			SystemPrompt: agent.AssemblePrompt(base, requestPrompt),
			Tools:        []tools.Name{tools.GetInventory, tools.GetNotes, tools.AddNote},
		},
		ModeHaggle: {
			Mode:         ModeHaggle,
			SystemPrompt: agent.AssemblePrompt(base, hagglePrompt),
			Tools:        []tools.Name{tools.GetInventory, tools.SetPrice, tools.GetNotes, tools.AddNote},
		},
		ModeRestock: {
			Mode:         ModeRestock,
			SystemPrompt: agent.AssemblePrompt(base),
			Tools:        restockTools,
			Opening:      RestockMessage,
		},
	}
}
