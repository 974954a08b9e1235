package ws

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"zbchat/internal/domain"
)

func TestPresence_LoginUnique(t *testing.T) {
	p := NewPresence()

	if err := p.Login("conn-1", "alice"); err != nil {
		t.Fatalf("first login failed: %v", err)
	}

	err := p.Login("conn-2", "alice")
	if !errors.Is(err, domain.ErrAlreadyOnline) {
		t.Errorf("expected ErrAlreadyOnline, got %v", err)
	}

	// The losing connection must not appear in either index.
	if _, ok := p.Username("conn-2"); ok {
		t.Error("rejected connection should not be tracked")
	}
	if !p.IsOnline("alice") {
		t.Error("alice should still be online")
	}
}

func TestPresence_LogoutReleasesName(t *testing.T) {
	p := NewPresence()
	if err := p.Login("conn-1", "alice"); err != nil {
		t.Fatal(err)
	}

	username, ok := p.Logout("conn-1")
	if !ok || username != "alice" {
		t.Fatalf("Logout = %q, %v", username, ok)
	}
	if p.IsOnline("alice") {
		t.Error("alice should be offline after logout")
	}

	// Name is free again.
	if err := p.Login("conn-2", "alice"); err != nil {
		t.Errorf("relogin after logout failed: %v", err)
	}
}

func TestPresence_LoginReplacesPreviousName(t *testing.T) {
	p := NewPresence()
	if err := p.Login("conn-1", "alice"); err != nil {
		t.Fatal(err)
	}

	// Same connection takes a new name; the old one must be released.
	if err := p.Login("conn-1", "bob"); err != nil {
		t.Fatalf("rename login failed: %v", err)
	}
	if p.IsOnline("alice") {
		t.Error("alice should be free after conn-1 switched to bob")
	}
	if !p.IsOnline("bob") {
		t.Error("bob should be online")
	}

	username, ok := p.Logout("conn-1")
	if !ok || username != "bob" {
		t.Fatalf("Logout = %q, %v", username, ok)
	}
	if p.IsOnline("alice") || p.IsOnline("bob") {
		t.Errorf("roster should be empty, got %v", p.OnlineUsers())
	}

	// Both names usable again.
	if err := p.Login("conn-2", "alice"); err != nil {
		t.Errorf("alice login after release failed: %v", err)
	}
	if err := p.Login("conn-3", "bob"); err != nil {
		t.Errorf("bob login after release failed: %v", err)
	}
}

func TestPresence_LogoutIdempotent(t *testing.T) {
	p := NewPresence()
	if _, ok := p.Logout("never-logged-in"); ok {
		t.Error("logout of unknown connection should report ok=false")
	}

	p.Login("conn-1", "alice")
	p.Logout("conn-1")
	if _, ok := p.Logout("conn-1"); ok {
		t.Error("second logout should be a no-op")
	}
}

func TestPresence_OnlineUsers(t *testing.T) {
	p := NewPresence()
	p.Login("conn-1", "alice")
	p.Login("conn-2", "bob")

	users := p.OnlineUsers()
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	seen := map[string]bool{}
	for _, u := range users {
		seen[u] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Errorf("roster missing entries: %v", users)
	}
}

func TestPresence_ConcurrentLoginSingleWinner(t *testing.T) {
	p := NewPresence()

	const attempts = 50
	var wg sync.WaitGroup
	wins := make(chan string, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			if err := p.Login(connID, "alice"); err == nil {
				wins <- connID
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one winning login, got %d", count)
	}
}
