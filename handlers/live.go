// handlers/live.go - Live leaderboard over websocket
package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"lingoquest/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LeaderboardMessage is pushed to live leaderboard clients
type LeaderboardMessage struct {
	Type        string                    `json:"type"`
	ChallengeID uint                      `json:"challenge_id"`
	Event       string                    `json:"event,omitempty"`
	Entries     []models.LeaderboardEntry `json:"entries"`
}

// RequireWebSocketUpgrade rejects plain HTTP requests on websocket routes
func RequireWebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// LiveLeaderboard streams a fresh leaderboard snapshot whenever the challenge changes
// GET /ws/challenges/:id/leaderboard
func LiveLeaderboard() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		id, err := strconv.ParseUint(conn.Params("id"), 10, 64)
		if err != nil || id == 0 {
			_ = conn.WriteJSON(fiber.Map{"type": "error", "error": "invalid challenge id"})
			return
		}
		challengeID := uint(id)
		username, _ := conn.Locals("username").(string)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := liveHub.Subscribe(ctx, 16)
		handlerLog.Debug("Live leaderboard client connected",
			zap.Uint("challenge_id", challengeID), zap.String("username", username))

		// reader: handles pongs and notices the close
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := sendSnapshot(ctx, conn, challengeID, ""); err != nil {
			return
		}

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-updates:
				if !ok {
					return
				}
				if evt.ChallengeID != challengeID {
					continue
				}
				if err := sendSnapshot(ctx, conn, challengeID, evt.Type); err != nil {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}

func sendSnapshot(ctx context.Context, conn *websocket.Conn, challengeID uint, eventType string) error {
	msg, err := leaderboardMessage(ctx, challengeID, eventType)
	if err != nil {
		handlerLog.Warn("Live leaderboard load failed", zap.Uint("challenge_id", challengeID), zap.Error(err))
		msg = &LeaderboardMessage{Type: "error", ChallengeID: challengeID, Event: eventType}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func leaderboardMessage(ctx context.Context, challengeID uint, eventType string) (*LeaderboardMessage, error) {
	entries, err := challengeSvc.Ranking.Leaderboard(ctx, challengeID, defaultLeaderboardLimit)
	if err != nil {
		return nil, err
	}
	return &LeaderboardMessage{
		Type:        "leaderboard",
		ChallengeID: challengeID,
		Event:       eventType,
		Entries:     entries,
	}, nil
}
