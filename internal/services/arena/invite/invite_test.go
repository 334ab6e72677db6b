package invite

import (
	"testing"
	"time"
)

var fixedNow = func() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func TestCreateInvite(t *testing.T) {
	inv, err := Create(CreateInput{
		SessionID:       "  sess-1 ",
		RecipientUserID: " user-1 ",
		Role:            " villager ",
	}, fixedNow, func() (string, error) { return "invite-1", nil })
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	if inv.ID != "invite-1" || inv.SessionID != "sess-1" || inv.RecipientUserID != "user-1" {
		t.Fatalf("invite = %+v", inv)
	}
	if inv.Role != "villager" {
		t.Fatalf("role = %q", inv.Role)
	}
	if inv.Status != StatusPending {
		t.Fatalf("status = %q, want %q", inv.Status, StatusPending)
	}
	if !inv.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("created at = %v", inv.CreatedAt)
	}
}

func TestCreateInviteValidation(t *testing.T) {
	if _, err := Create(CreateInput{RecipientUserID: "user-1"}, fixedNow, nil); err == nil {
		t.Fatal("expected error for missing session id")
	}
	if _, err := Create(CreateInput{SessionID: "sess-1"}, fixedNow, nil); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}

func TestClaimAndRevoke(t *testing.T) {
	inv, err := Create(CreateInput{SessionID: "sess-1", RecipientUserID: "user-1"}, fixedNow, nil)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	claimed, err := Claim(inv, fixedNow)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != StatusClaimed {
		t.Fatalf("status = %q, want %q", claimed.Status, StatusClaimed)
	}

	if _, err := Claim(claimed, fixedNow); err == nil {
		t.Fatal("expected double claim to fail")
	}
	if _, err := Revoke(claimed, fixedNow); err == nil {
		t.Fatal("expected revoke of claimed invite to fail")
	}

	revoked, err := Revoke(inv, fixedNow)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked.Status != StatusRevoked {
		t.Fatalf("status = %q, want %q", revoked.Status, StatusRevoked)
	}
}

func TestParseStatus(t *testing.T) {
	if got, ok := ParseStatus(" Pending "); !ok || got != StatusPending {
		t.Fatalf("ParseStatus = %q, %v", got, ok)
	}
	if _, ok := ParseStatus("expired"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
