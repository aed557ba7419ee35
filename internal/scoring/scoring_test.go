package scoring

import (
	"testing"

	"github.com/lightcycle-mcp/arena/internal/world"
)

func finishedWorld(courseLevel, tick int, winner *int, distances []int) world.World {
	players := make([]world.Player, len(distances))
	for i, d := range distances {
		players[i] = world.Player{Index: i, Name: names[i], Distance: d}
	}
	return world.World{
		Status:      world.Finished,
		CourseLevel: courseLevel,
		Tick:        tick,
		Winner:      winner,
		Players:     players,
	}
}

var names = []string{"alice", "bob", "carol"}

func TestAwardWinnerBonus(t *testing.T) {
	winner := 0
	w := finishedWorld(1, 50, &winner, []int{20, 5})

	results := Award(w)

	if !results[0].Won {
		t.Fatalf("expected player 0 to be marked as won")
	}
	if results[1].Won {
		t.Fatalf("expected player 1 to not be marked as won")
	}
	if results[0].Points <= results[1].Points {
		t.Fatalf("expected winner to score higher: %d vs %d", results[0].Points, results[1].Points)
	}
}

func TestAwardNoParticipationForZeroDistance(t *testing.T) {
	w := finishedWorld(1, 10, nil, []int{0})
	results := Award(w)
	if results[0].Points < 0 {
		t.Fatalf("points should never be negative, got %d", results[0].Points)
	}
	// With zero distance and zero participation, only the (possibly
	// capped) speed bonus remains.
	expected := 0
	ticksAllowed := maxTicksForCourse(1)
	bonus := ticksAllowed - 10
	if bonus > speedBonusCap {
		bonus = speedBonusCap
	}
	expected += bonus
	if results[0].Points != expected {
		t.Fatalf("expected %d points, got %d", expected, results[0].Points)
	}
}

func TestLeaderboardApplyAndPromotion(t *testing.T) {
	lb := NewLeaderboard()
	winner := 0
	w := finishedWorld(1, 50, &winner, []int{20, 5})
	results := Award(w)

	lb.Apply(results, 1)

	if next := lb.NextCourseFor("alice", 5); next != 2 {
		t.Fatalf("expected winner alice promoted to course 2, got %d", next)
	}
	if next := lb.NextCourseFor("bob", 5); next != 1 {
		t.Fatalf("expected non-winner bob to stay at course 1, got %d", next)
	}
	if next := lb.NextCourseFor("nobody", 5); next != 1 {
		t.Fatalf("expected unseen player to start at course 1, got %d", next)
	}
}

func TestLeaderboardPromotionCapsAtMaxLevel(t *testing.T) {
	lb := NewLeaderboard()
	winner := 0
	w := finishedWorld(5, 50, &winner, []int{20})
	lb.Apply(Award(w), 5)

	if next := lb.NextCourseFor("alice", 5); next != 5 {
		t.Fatalf("expected promotion capped at max level 5, got %d", next)
	}
}

// TestLeaderboardIdempotentReplay covers Testable Property 6: replaying a
// finished game's results against a clean leaderboard must reproduce the
// same leaderboard as applying them once.
func TestLeaderboardIdempotentReplay(t *testing.T) {
	winner := 1
	w := finishedWorld(2, 80, &winner, []int{12, 40, 3})
	results := Award(w)

	a := NewLeaderboard()
	a.Apply(results, 2)

	b := NewLeaderboard()
	b.Apply(results, 2)

	snapA, snapB := a.Snapshot(), b.Snapshot()
	if len(snapA) != len(snapB) {
		t.Fatalf("snapshot length mismatch: %d vs %d", len(snapA), len(snapB))
	}
	for i := range snapA {
		if snapA[i] != snapB[i] {
			t.Fatalf("snapshot entry %d mismatch: %+v vs %+v", i, snapA[i], snapB[i])
		}
	}
}

func TestLeaderboardTopOrdering(t *testing.T) {
	lb := NewLeaderboard()
	lb.Apply([]Result{{Name: "low", Points: 10}, {Name: "high", Points: 90}, {Name: "mid", Points: 50}}, 1)

	top := lb.Top(2)
	if len(top) != 2 || top[0].Name != "high" || top[1].Name != "mid" {
		t.Fatalf("expected [high, mid] ordering, got %+v", top)
	}
}
