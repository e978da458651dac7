package common

import (
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
)

// SetNodeID configures the snowflake node used by UUIDint64. It must be called
// before the first id is generated; later calls are ignored.
func SetNodeID(node int64) {
	idNodeOnce.Do(func() {
		n, err := snowflake.NewNode(node)
		if err != nil {
			n, _ = snowflake.NewNode(1)
		}
		idNode = n
	})
}

// UUIDint64 returns a unique, time-ordered int64 id.
func UUIDint64() int64 {
	SetNodeID(1)
	return idNode.Generate().Int64()
}

// ParseID parses a decimal id. It returns false for empty, malformed or non-positive input.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IsEmpty reports whether s has no non-blank characters.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
