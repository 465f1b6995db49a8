package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/models"
)

const idempotencyTTL = 24 * time.Hour

// Idempotency replays the stored response for a repeated Idempotency-Key.
// A reused key with a different request body is rejected so clients cannot
// silently get another request's answer back.
func Idempotency(c *fiber.Ctx) error {
	key := c.Get("Idempotency-Key")
	if len(key) == 0 {
		return c.Next()
	}

	hash := requestHash(c)

	var stored models.IdempotencyKey
	result := config.DataBase.First(&stored, "key = ? AND expires_at > ?", key, time.Now())
	if result.Error == nil {
		if stored.RequestHash != hash {
			return c.Status(422).JSON(fiber.Map{
				"errors": []string{"server.idempotency.key_reused"},
			})
		}
		c.Response().Header.Add("Idempotency-Replayed", "true")
		c.Response().Header.SetContentType(fiber.MIMEApplicationJSON)
		return c.Status(stored.ResponseCode).SendString(stored.ResponseBody)
	}

	if err := c.Next(); err != nil {
		return err
	}

	record := &models.IdempotencyKey{
		Key:          key,
		RequestHash:  hash,
		ResponseCode: c.Response().StatusCode(),
		ResponseBody: string(c.Response().Body()),
		ExpiresAt:    time.Now().Add(idempotencyTTL),
	}
	if result := config.DataBase.Create(record); result.Error != nil {
		config.Logger.Errorf("failed to persist idempotency key: %v", result.Error)
	}

	return nil
}

func requestHash(c *fiber.Ctx) string {
	sum := sha256.Sum256(append([]byte(c.Method()+" "+c.Path()+"\n"), c.Body()...))
	return hex.EncodeToString(sum[:])
}
