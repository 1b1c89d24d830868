package retirement

import (
	"context"
	"testing"
	"time"
)

// Exercising Open/Enqueue/Records end to end requires a live Postgres
// reachable via GAME_DB_URL; that integration path is exercised manually
// against a real database, not in this unit test package. The pure paging
// and schema logic is covered here.

func TestClampLimitDefaultsAndCaps(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 100},
		{-5, 100},
		{50, 50},
		{100, 100},
		{101, 100},
	}
	for _, c := range cases {
		if got := clampLimit(c.in); got != c.want {
			t.Errorf("clampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCreateTableSQLMatchesSchema(t *testing.T) {
	for _, want := range []string{"retired_players", "uuid", "score", "playtime", "score DESC, playtime ASC, name ASC"} {
		if !contains(createTableSQL, want) {
			t.Errorf("createTableSQL missing expected fragment %q", want)
		}
	}
}

func TestDrainStopsRetryLoopWithNothingPending(t *testing.T) {
	s := &Sink{stop: make(chan struct{}), loopDone: make(chan struct{})}
	go s.retryLoop(context.Background())

	done := make(chan struct{})
	go func() {
		s.Drain(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drain did not return once the retry loop had nothing pending")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
