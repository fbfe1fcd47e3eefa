package chat

import "testing"

func TestAllowlist_MessageAllowed(t *testing.T) {
	a := NewAllowlist([]string{"u1", "u2"}, []string{"room-a"})

	if !a.MessageAllowed("u1", "room-a") {
		t.Fatal("expected allowlisted user and room to pass")
	}
	if a.MessageAllowed("u9", "room-a") {
		t.Fatal("expected non-allowlisted user to fail")
	}
	if a.MessageAllowed("u1", "room-z") {
		t.Fatal("expected non-allowlisted room to fail")
	}
}

func TestAllowlist_RoomOptional(t *testing.T) {
	a := NewAllowlist([]string{"u1"}, nil)

	if !a.MessageAllowed("u1", "") {
		t.Fatal("expected allowlisted user to pass when room allowlist is empty")
	}
	if a.MessageAllowed("u2", "") {
		t.Fatal("expected non-allowlisted user to fail")
	}
}

func TestAllowlist_EmptyListsAdmitEveryone(t *testing.T) {
	a := NewAllowlist(nil, nil)
	if !a.MessageAllowed("u1", "room-a") {
		t.Fatal("expected empty allowlist to admit everyone")
	}
	var nilList *Allowlist
	if !nilList.MessageAllowed("u1", "room-a") {
		t.Fatal("expected nil allowlist to admit everyone")
	}
}

func TestAllowlist_NormalizesCaseAndWhitespace(t *testing.T) {
	a := NewAllowlist([]string{" GUILD_USER "}, []string{" SHOP-CHANNEL "})

	if !a.MessageAllowed("guild_user", "shop-channel") {
		t.Fatal("expected lowercase sender IDs to match upper/whitespace allowlist entries")
	}
	if !a.MessageAllowed("GUILD_USER", "SHOP-CHANNEL") {
		t.Fatal("expected uppercase sender IDs to match normalized allowlist entries")
	}
}
