package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/takeoff/internal/model"
)

// Cache memoizes geometry measured for shared shape representations
type Cache interface {
	Get(key string) (model.Geometry, bool)
	Set(key string, value model.Geometry, ttl time.Duration)
}

// Key generates a cache key for a representation within a model file
func Key(sourcePath, representation string) string {
	hash := sha256.Sum256([]byte(sourcePath + "\x00" + representation))
	return "takeoff:v1:" + hex.EncodeToString(hash[:])
}
