package services

import (
	"sync"
	"testing"
	"time"

	"lingoquest/cache"
	"lingoquest/events"
	"lingoquest/models"
	"lingoquest/testutil"

	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t *testing.T, rfc3339 string) *fakeClock {
	t.Helper()
	now, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		t.Fatalf("parse clock %q: %v", rfc3339, err)
	}
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db    *gorm.DB
	clock *fakeClock
	cache *cache.MemoryCache
	hub   *events.Hub
	svc   *Challenges
}

// newTestEnv builds the service graph over an in-memory database.
// 2024-01-01T03:00:00Z is 10:00 on 2024-01-01 in the challenge zone.
func newTestEnv(t *testing.T, at string) *testEnv {
	t.Helper()
	if at == "" {
		at = "2024-01-01T03:00:00Z"
	}
	db := testutil.OpenTestDB(t)
	clock := newFakeClock(t, at)

	cal, err := NewCalendar("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("NewCalendar: %v", err)
	}
	cal = cal.WithClock(clock.Now)

	mem := cache.NewMemoryCache()
	hub := events.NewHub()
	svc := NewChallenges(db, cal, DefaultPolicy(), mem, hub, nil)
	return &testEnv{db: db, clock: clock, cache: mem, hub: hub, svc: svc}
}

func (e *testEnv) challenge(t *testing.T, date string, tier models.Difficulty, xp, gems int) *models.DailyChallenge {
	t.Helper()
	ex := testutil.CreateExercise(t, e.db, "exercise "+date+" "+string(tier))
	return testutil.CreateChallenge(t, e.db, date, tier, ex.ID, xp, gems)
}

func (e *testEnv) reloadUser(t *testing.T, id uint) models.User {
	t.Helper()
	var u models.User
	if err := e.db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return u
}

func (e *testEnv) reloadChallenge(t *testing.T, id uint) models.DailyChallenge {
	t.Helper()
	var c models.DailyChallenge
	if err := e.db.First(&c, id).Error; err != nil {
		t.Fatalf("reload challenge %d: %v", id, err)
	}
	return c
}

// seedParticipation writes a finished participation directly
func (e *testEnv) seedParticipation(t *testing.T, challengeID, userID uint, score, timeSpent int, firstAt time.Time) {
	t.Helper()
	p := models.ChallengeParticipation{
		ChallengeID:    challengeID,
		UserID:         userID,
		AttemptsUsed:   1,
		BestScore:      score,
		BestTimeSpent:  timeSpent,
		FirstAttemptAt: firstAt,
		LastAttemptAt:  firstAt,
	}
	if err := e.db.Create(&p).Error; err != nil {
		t.Fatalf("seed participation: %v", err)
	}
}
