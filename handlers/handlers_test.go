package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"lingoquest/cache"
	"lingoquest/events"
	"lingoquest/middleware"
	"lingoquest/models"
	"lingoquest/services"
	"lingoquest/testutil"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const testSecret = "handler-test-secret-with-32-characters"

type apiEnv struct {
	app  *fiber.App
	db   *gorm.DB
	auth *middleware.Auth
	svc  *services.Challenges
}

// newAPI serves the routes over an in-memory database with the clock fixed
// at 10:00 on 2024-01-01 in the challenge zone.
func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)

	cal, err := services.NewCalendar("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("NewCalendar: %v", err)
	}
	fixed := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	cal = cal.WithClock(func() time.Time { return fixed })

	hub := events.NewHub()
	svc := services.NewChallenges(db, cal, services.DefaultPolicy(), cache.NewMemoryCache(), hub, nil)
	auth := middleware.NewAuth(testSecret, time.Hour)

	InitChallengeHandlers(svc, hub, nil)
	InitAuthHandlers(db, auth)

	app := fiber.New()
	RegisterRoutes(app, auth)
	return &apiEnv{app: app, db: db, auth: auth, svc: svc}
}

func (e *apiEnv) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := e.auth.IssueToken(u.ID, u.Username, false)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

// do sends body as JSON, or verbatim when it is a string
func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (e *apiEnv) challenge(t *testing.T, date string, tier models.Difficulty) *models.DailyChallenge {
	t.Helper()
	ex := testutil.CreateExercise(t, e.db, "exercise "+date)
	return testutil.CreateChallenge(t, e.db, date, tier, ex.ID, 50, 5)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newAPI(t)

	status, body := env.do(t, "POST", "/api/auth/register", "", fiber.Map{"username": "alice", "password": "secret1"})
	if status != 201 || body["token"] == "" {
		t.Fatalf("register = %d %v", status, body)
	}

	status, _ = env.do(t, "POST", "/api/auth/register", "", fiber.Map{"username": "alice", "password": "secret1"})
	if status != 400 {
		t.Fatalf("duplicate register status = %d, want 400", status)
	}

	status, _ = env.do(t, "POST", "/api/auth/login", "", fiber.Map{"username": "alice", "password": "wrong"})
	if status != 401 {
		t.Fatalf("wrong password status = %d, want 401", status)
	}

	status, body = env.do(t, "POST", "/api/auth/login", "", fiber.Map{"username": "alice", "password": "secret1"})
	if status != 200 || body["success"] != true {
		t.Fatalf("login = %d %v", status, body)
	}

	token, _ := body["token"].(string)
	status, body = env.do(t, "GET", "/api/challenges/today", token, nil)
	if status != 200 {
		t.Fatalf("today with login token = %d %v", status, body)
	}
}

func TestTodayWithoutChallenge(t *testing.T) {
	env := newAPI(t)
	user := testutil.CreateUser(t, env.db, "bob", 1)

	status, body := env.do(t, "GET", "/api/challenges/today", env.token(t, user), nil)
	if status != 200 {
		t.Fatalf("status = %d %v", status, body)
	}
	data := body["data"].(map[string]any)
	if data["has_challenge"] != false || data["date"] != "2024-01-01" || data["tier"] != "beginner" {
		t.Fatalf("unexpected view %v", data)
	}
}

func TestAttemptFlow(t *testing.T) {
	env := newAPI(t)
	user := testutil.CreateUser(t, env.db, "carol", 1)
	token := env.token(t, user)
	ch := env.challenge(t, "2024-01-01", models.DifficultyBeginner)
	base := "/api/challenges/" + itoa(ch.ID)

	status, body := env.do(t, "POST", base+"/attempts", token, fiber.Map{"score": 80, "time_spent": 120})
	if status != 200 {
		t.Fatalf("first attempt = %d %v", status, body)
	}
	if body["attempt_number"] != float64(1) || body["attempts_left"] != float64(2) ||
		body["rank"] != float64(1) || body["is_first_pass"] != true || body["xp_awarded"] != float64(50) {
		t.Fatalf("unexpected first attempt %v", body)
	}

	for i := 0; i < 2; i++ {
		if status, body = env.do(t, "POST", base+"/attempts", token, fiber.Map{"score": 60, "time_spent": 90}); status != 200 {
			t.Fatalf("attempt %d = %d %v", i+2, status, body)
		}
	}

	status, body = env.do(t, "POST", base+"/attempts", token, fiber.Map{"score": 99, "time_spent": 10})
	if status != 409 || body["code"] != "attempt_limit_exceeded" || body["attempts_left"] != float64(0) {
		t.Fatalf("fourth attempt = %d %v", status, body)
	}

	status, body = env.do(t, "GET", base+"/attempts", token, nil)
	if status != 200 || body["count"] != float64(3) {
		t.Fatalf("history = %d %v", status, body)
	}
	first := body["attempts"].([]any)[0].(map[string]any)
	if first["attempt_number"] != float64(3) {
		t.Fatalf("history must be most recent first, got %v", first)
	}

	status, body = env.do(t, "GET", base+"/leaderboard?limit=10", token, nil)
	if status != 200 {
		t.Fatalf("leaderboard = %d %v", status, body)
	}
	mine := body["my_rank"].(map[string]any)
	if mine["rank"] != float64(1) || mine["score"] != float64(80) || mine["time_spent"] != float64(120) {
		t.Fatalf("unexpected my_rank %v", mine)
	}

	status, body = env.do(t, "GET", base+"/stats", token, nil)
	stats := body["stats"].(map[string]any)
	if status != 200 || stats["total_participants"] != float64(1) || stats["avg_score"] != float64(80) {
		t.Fatalf("stats = %d %v", status, body)
	}

	status, body = env.do(t, "GET", "/api/challenges/today", token, nil)
	view := body["data"].(map[string]any)
	if status != 200 || view["status"] != "completed" || view["can_attempt"] != false {
		t.Fatalf("today view = %d %v", status, view)
	}
}

func TestAttemptErrors(t *testing.T) {
	env := newAPI(t)
	user := testutil.CreateUser(t, env.db, "dave", 1)
	token := env.token(t, user)
	today := env.challenge(t, "2024-01-01", models.DifficultyBeginner)
	future := env.challenge(t, "2024-01-02", models.DifficultyBeginner)
	advanced := env.challenge(t, "2024-01-01", models.DifficultyAdvanced)

	cases := []struct {
		name   string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", "/api/challenges/" + itoa(today.ID) + "/attempts", "", fiber.Map{"score": 80, "time_spent": 10}, 401, ""},
		{"bad id", "/api/challenges/abc/attempts", token, fiber.Map{"score": 80, "time_spent": 10}, 400, "invalid_input"},
		{"bad body", "/api/challenges/" + itoa(today.ID) + "/attempts", token, "{", 400, "invalid_input"},
		{"score out of range", "/api/challenges/" + itoa(today.ID) + "/attempts", token, fiber.Map{"score": 150, "time_spent": 10}, 400, "invalid_input"},
		{"unknown challenge", "/api/challenges/999/attempts", token, fiber.Map{"score": 80, "time_spent": 10}, 404, "challenge_not_found"},
		{"not open yet", "/api/challenges/" + itoa(future.ID) + "/attempts", token, fiber.Map{"score": 80, "time_spent": 10}, 409, "challenge_not_open"},
		{"other tier", "/api/challenges/" + itoa(advanced.ID) + "/attempts", token, fiber.Map{"score": 80, "time_spent": 10}, 403, "wrong_tier"},
	}
	for _, tc := range cases {
		status, body := env.do(t, "POST", tc.path, tc.token, tc.body)
		if status != tc.status {
			t.Fatalf("%s: status = %d, want %d (%v)", tc.name, status, tc.status, body)
		}
		if tc.code != "" && body["code"] != tc.code {
			t.Fatalf("%s: code = %v, want %s", tc.name, body["code"], tc.code)
		}
	}
}

func TestChallengeByDate(t *testing.T) {
	env := newAPI(t)
	user := testutil.CreateUser(t, env.db, "erin", 7)
	env.challenge(t, "2023-12-31", models.DifficultyIntermediate)

	status, body := env.do(t, "GET", "/api/challenges/date/2023-12-31", env.token(t, user), nil)
	view := body["data"].(map[string]any)
	if status != 200 || view["has_challenge"] != true || view["tier"] != "intermediate" || view["status"] != "not_started" {
		t.Fatalf("view = %d %v", status, view)
	}

	status, body = env.do(t, "GET", "/api/challenges/date/31-12-2023", env.token(t, user), nil)
	if status != 400 {
		t.Fatalf("malformed date status = %d %v", status, body)
	}
}

func TestLiveLeaderboardRequiresUpgrade(t *testing.T) {
	env := newAPI(t)
	status, _ := env.do(t, "GET", "/ws/challenges/1/leaderboard", "", nil)
	if status != fiber.StatusUpgradeRequired {
		t.Fatalf("status = %d, want 426", status)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestProgression(t *testing.T) {
	env := newAPI(t)
	user := testutil.CreateUser(t, env.db, "frank", 2)
	env.db.Model(user).Updates(map[string]any{"xp": 300, "gems": 70, "current_streak": 4})
	ach := testutil.CreateAchievement(t, env.db, models.Achievement{RuleKind: models.RuleStreak, Threshold: 3})
	if _, err := env.svc.Achievements.Unlock(env.db, user.ID, ach.ID, "test", false); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	token := env.token(t, user)

	status, body := env.do(t, "GET", "/api/users/me/progression", token, nil)
	if status != 200 || body["level"] != float64(2) || body["xp_into_level"] != float64(18) ||
		body["xp_to_next_level"] != float64(519) || body["current_streak"] != float64(4) || body["tier"] != "beginner" {
		t.Fatalf("progression = %d %v", status, body)
	}

	status, body = env.do(t, "GET", "/api/users/me/achievements", token, nil)
	if status != 200 || body["total"] != float64(1) || body["unlocked"] != float64(1) {
		t.Fatalf("achievements = %d %v", status, body)
	}
}
