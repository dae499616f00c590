package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"wealthwars/internal/game"
)

// Redis ranks players in a sorted set and keeps display fields in a hash.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ww"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) scoresKey() string {
	return r.prefix + ":leaderboard"
}

func (r *Redis) metaKey() string {
	return r.prefix + ":leaderboard:meta"
}

func (r *Redis) Submit(ctx context.Context, row game.LeaderboardRow) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, r.scoresKey(), redis.Z{Score: float64(row.Score), Member: row.PlayerID})
		pipe.HSet(ctx, r.metaKey(), row.PlayerID, raw)
		return nil
	})
	return err
}

func (r *Redis) Top(ctx context.Context, limit int) ([]game.LeaderboardRow, error) {
	if limit <= 0 {
		return []game.LeaderboardRow{}, nil
	}
	zs, err := r.rdb.ZRevRangeWithScores(ctx, r.scoresKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return []game.LeaderboardRow{}, nil
	}
	ids := make([]string, 0, len(zs))
	for _, z := range zs {
		ids = append(ids, fmt.Sprint(z.Member))
	}
	metas, err := r.rdb.HMGet(ctx, r.metaKey(), ids...).Result()
	if err != nil {
		return nil, err
	}
	return rowsFromZ(zs, metas), nil
}

func rowsFromZ(zs []redis.Z, metas []any) []game.LeaderboardRow {
	out := make([]game.LeaderboardRow, 0, len(zs))
	for i, z := range zs {
		row := game.LeaderboardRow{PlayerID: fmt.Sprint(z.Member)}
		if i < len(metas) {
			if s, ok := metas[i].(string); ok {
				_ = json.Unmarshal([]byte(s), &row)
			}
		}
		row.PlayerID = fmt.Sprint(z.Member)
		row.Score = int64(z.Score)
		row.Rank = int64(i + 1)
		out = append(out, row)
	}
	return out
}
