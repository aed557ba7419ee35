package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/lightcycle-mcp/arena/internal/scoring"
)

func testConfig() Config {
	return Config{
		MaxPlayers:      8,
		LobbyWait:       80 * time.Millisecond,
		SoloTimeout:     200 * time.Millisecond,
		TickInterval:    20 * time.Millisecond,
		CallTimeout:     2 * time.Second,
		InactivityTicks: 5,
		RetainFinished:  200,
	}
}

func newTestCoordinator() *Coordinator {
	return New(testConfig(), scoring.NewLeaderboard(), nil, nil, nil)
}

func TestJoinThenGameStartsAtTwoPlayersAfterLobbyWait(t *testing.T) {
	c := newTestCoordinator()

	a, err := c.Join("alice")
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	b, err := c.Join("bob")
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	if a.GameID != b.GameID {
		t.Fatalf("expected alice and bob in the same lobby")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := c.Steer(ctx, a.SessionToken, "straight")
	if err != nil {
		t.Fatalf("Steer: %v", err)
	}
	if result.Tick < 1 {
		t.Fatalf("expected at least one tick to have elapsed, got %d", result.Tick)
	}
}

func TestJoinRejectsDuplicateName(t *testing.T) {
	c := newTestCoordinator()
	if _, err := c.Join("alice"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := c.Join("alice")
	if err == nil {
		t.Fatalf("expected NameTaken error on duplicate join")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != KindNameTaken {
		t.Fatalf("expected KindNameTaken, got %v", err)
	}
}

// S2 Solo survival/cancellation: a lone joiner's game is cancelled after
// solo_timeout with no winner and no leaderboard change.
func TestSoloGameIsCancelledAfterSoloTimeout(t *testing.T) {
	c := newTestCoordinator()
	res, err := c.Join("solo")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, statusErr := c.Status(res.SessionToken)
		if statusErr != nil {
			t.Fatalf("Status: %v", statusErr)
		}
		if status.PlayerView.Status.String() == "Finished" {
			if status.PlayerView.Winner != nil {
				t.Fatalf("expected no winner for a solo-cancelled game")
			}
			lb := c.leaderboard.Snapshot()
			if len(lb) != 0 {
				t.Fatalf("expected no leaderboard change from a solo-cancelled game, got %+v", lb)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("solo game was never cancelled within the test deadline")
}

// S3 Winner promotion: a winner's leaderboard entry raises their highest
// level, and their next join places them in the next course.
func TestWinnerIsPromotedToNextCourse(t *testing.T) {
	c := newTestCoordinator()
	a, err := c.Join("winner")
	if err != nil {
		t.Fatalf("join winner: %v", err)
	}
	_, err = c.Join("loser")
	if err != nil {
		t.Fatalf("join loser: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 400; i++ {
		result, err := c.Steer(ctx, a.SessionToken, "straight")
		if err != nil {
			if gerr, ok := err.(*Error); ok && (gerr.Kind == KindPlayerDead) {
				break
			}
			t.Fatalf("Steer: %v", err)
		}
		if result.Status.String() == "Finished" {
			break
		}
	}

	top := c.leaderboard.Snapshot()
	if len(top) == 0 {
		t.Fatalf("expected the leaderboard to have been updated")
	}

	again, err := c.Join("winner")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.CourseLevel != 2 {
		t.Fatalf("expected the winner to be promoted to course level 2, got %d", again.CourseLevel)
	}
}

func TestSteerRejectsInvalidDirection(t *testing.T) {
	c := newTestCoordinator()
	res, err := c.Join("alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	ctx := context.Background()
	_, err = c.Steer(ctx, res.SessionToken, "backward")
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != KindInvalidDirection {
		t.Fatalf("expected KindInvalidDirection, got %v", err)
	}
}

func TestLookWithUnknownTokenReturnsNoActiveSession(t *testing.T) {
	c := newTestCoordinator()
	_, err := c.Look("does-not-exist")
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != KindNoActiveSession {
		t.Fatalf("expected KindNoActiveSession, got %v", err)
	}
}

// Property 7 (fairness under slow agents): a player who never calls
// steer is still advanced every tick, defaulting to straight.
func TestGameProgressesForPlayersWhoNeverSteer(t *testing.T) {
	c := newTestCoordinator()
	a, err := c.Join("active")
	if err != nil {
		t.Fatalf("join active: %v", err)
	}
	_, err = c.Join("idle")
	if err != nil {
		t.Fatalf("join idle: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	first, err := c.Steer(ctx, a.SessionToken, "straight")
	if err != nil {
		t.Fatalf("steer: %v", err)
	}

	time.Sleep(3 * testConfig().TickInterval)

	status, err := c.Status(a.SessionToken)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PlayerView.Tick <= first.Tick {
		t.Fatalf("expected the game to keep advancing past tick %d for the idle player, got %d", first.Tick, status.PlayerView.Tick)
	}
}
