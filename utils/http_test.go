package utils

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"lingoquest/services"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&services.ValidationError{Field: "score", Message: "bad"}, 400, "invalid_input"},
		{fmt.Errorf("load: %w", services.ErrChallengeNotFound), 404, "challenge_not_found"},
		{services.ErrUserNotFound, 404, "user_not_found"},
		{services.ErrDuplicateChallenge, 409, "duplicate_challenge"},
		{services.ErrAttemptLimitExceeded, 409, "attempt_limit_exceeded"},
		{services.ErrChallengeClosed, 409, "challenge_closed"},
		{services.ErrChallengeNotOpen, 409, "challenge_not_open"},
		{services.ErrWrongTier, 403, "wrong_tier"},
		{fmt.Errorf("%w: connection refused", services.ErrStoreUnavailable), 503, "store_unavailable"},
		{fmt.Errorf("boom"), 500, "internal_error"},
	}
	for _, tc := range cases {
		status, code := ErrorStatus(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("ErrorStatus(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestJSONErrorAttemptLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return JSONError(c, services.ErrAttemptLimitExceeded) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["code"] != "attempt_limit_exceeded" || body["attempts_left"] != float64(0) {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestParamHelpers(t *testing.T) {
	app := fiber.New()
	app.Get("/c/:id", func(c *fiber.Ctx) error {
		id, err := ParseUintParam(c, "id")
		if err != nil {
			return JSONError(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "limit": QueryInt(c, "limit", 50)})
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/c/abc", nil))
	if resp.StatusCode != 400 {
		t.Fatalf("non-numeric id status = %d, want 400", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/c/0", nil))
	if resp.StatusCode != 400 {
		t.Fatalf("zero id status = %d, want 400", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/c/12?limit=x", nil))
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["id"] != float64(12) || body["limit"] != float64(50) {
		t.Fatalf("unexpected body %v", body)
	}
}
