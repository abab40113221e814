package cache

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// PokeChannel 每个用户一个频道，payload 是最新版本号
	PokeChannel        = "sync:poke:%d"
	PokeChannelPattern = "sync:poke:*"

	// token 不直接作为 key，存摘要；{} 保证 cluster 下同 slot
	TokenKey = "sync:auth:token:{%s}"
)

func GetPokeChannel(userID uint64) string { return fmt.Sprintf(PokeChannel, userID) }

// ParsePokeChannel 从频道名取 userID
func ParsePokeChannel(channel string) (uint64, bool) {
	rest, ok := strings.CutPrefix(channel, "sync:poke:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func GetTokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return fmt.Sprintf(TokenKey, hex.EncodeToString(sum[:]))
}
