package chat

import "strings"

// Allowlist gates senders by user and room (channel) id. An empty list
// admits everyone.
type Allowlist struct {
	users map[string]struct{}
	rooms map[string]struct{}
}

func NewAllowlist(userIDs, roomIDs []string) *Allowlist {
	a := &Allowlist{
		users: make(map[string]struct{}, len(userIDs)),
		rooms: make(map[string]struct{}, len(roomIDs)),
	}
	for _, id := range userIDs {
		if id = normalizeID(id); id != "" {
			a.users[id] = struct{}{}
		}
	}
	for _, id := range roomIDs {
		if id = normalizeID(id); id != "" {
			a.rooms[id] = struct{}{}
		}
	}
	return a
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (a *Allowlist) UserAllowed(userID string) bool {
	if a == nil || len(a.users) == 0 {
		return true
	}
	_, ok := a.users[normalizeID(userID)]
	return ok
}

func (a *Allowlist) RoomAllowed(roomID string) bool {
	if a == nil || len(a.rooms) == 0 {
		return true
	}
	_, ok := a.rooms[normalizeID(roomID)]
	return ok
}

func (a *Allowlist) MessageAllowed(userID, roomID string) bool {
	return a.UserAllowed(userID) && a.RoomAllowed(roomID)
}
