package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// UpdateKey identifies a Telegram update. Update ids are unique per bot, so
// the bot id keeps keys apart when several bots share one Redis.
func UpdateKey(botID int64, updateID int) string {
	if updateID == 0 {
		return ""
	}
	return GenerateKey("update", botID, updateID)
}
