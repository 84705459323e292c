package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
)

// Redis is a Store backed by Redis counters, for deployments that share
// quota state across router replicas. Fixed windows are realized with
// bucketed keys: the minute dimensions key on the epoch minute, the
// daily dimension on the UTC calendar day, so expiry needs no sweeping.
//
// Redis loss fails open: routing keeps working on the assumption that a
// briefly uncounted request is better than a stalled router. Deploy the
// in-memory Store when strict enforcement matters more than sharing.
type Redis struct {
	rdb   *redis.Client
	clock func() time.Time
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, clock: time.Now}
}

// reserveScript atomically checks all three counters against their
// limits and increments them when the request fits.
// KEYS[1] = rpm key, KEYS[2] = tpm key, KEYS[3] = rpd key
// ARGV[1] = rpm limit, ARGV[2] = tpm limit, ARGV[3] = rpd limit
// ARGV[4] = tokens, ARGV[5] = minute key TTL secs, ARGV[6] = day key TTL secs
// Returns 1 when reserved, 0 when over a limit.
var reserveScript = redis.NewScript(`
local rpm = tonumber(redis.call('GET', KEYS[1]) or '0')
local tpm = tonumber(redis.call('GET', KEYS[2]) or '0')
local rpd = tonumber(redis.call('GET', KEYS[3]) or '0')
local tokens = tonumber(ARGV[4])

if rpm + 1 > tonumber(ARGV[1]) or tpm + tokens > tonumber(ARGV[2]) or rpd + 1 > tonumber(ARGV[3]) then
    return 0
end

redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[5])
redis.call('INCRBY', KEYS[2], tokens)
redis.call('EXPIRE', KEYS[2], ARGV[5])
redis.call('INCR', KEYS[3])
redis.call('EXPIRE', KEYS[3], ARGV[6])
return 1
`)

func (l *Redis) keys(modelID string, now time.Time) (rpmKey, tpmKey, rpdKey string) {
	minute := now.Unix() / 60
	day := now.UTC().Format("2006-01-02")
	rpmKey = fmt.Sprintf("router:quota:rpm:%s:%d", modelID, minute)
	tpmKey = fmt.Sprintf("router:quota:tpm:%s:%d", modelID, minute)
	rpdKey = fmt.Sprintf("router:quota:rpd:%s:%s", modelID, day)
	return
}

func (l *Redis) CanUse(ctx context.Context, m registry.Model, tokens int) bool {
	if l.rdb == nil {
		return true
	}
	now := l.clock()
	rpmKey, tpmKey, rpdKey := l.keys(m.ID, now)

	vals, err := l.rdb.MGet(ctx, rpmKey, tpmKey, rpdKey).Result()
	if err != nil {
		// Fail open on Redis errors
		return true
	}
	rpm, tpm, rpd := toInt(vals[0]), toInt(vals[1]), toInt(vals[2])
	return fits(Counters{RPMCount: rpm, TPMCount: tpm, RPDCount: rpd}, m.Limits, tokens)
}

func (l *Redis) Register(ctx context.Context, m registry.Model, tokens int) {
	if l.rdb == nil {
		return
	}
	now := l.clock()
	rpmKey, tpmKey, rpdKey := l.keys(m.ID, now)

	pipe := l.rdb.Pipeline()
	pipe.Incr(ctx, rpmKey)
	pipe.Expire(ctx, rpmKey, 2*minuteWindow)
	pipe.IncrBy(ctx, tpmKey, int64(tokens))
	pipe.Expire(ctx, tpmKey, 2*minuteWindow)
	pipe.Incr(ctx, rpdKey)
	pipe.Expire(ctx, rpdKey, dayKeyTTL(now))
	pipe.Exec(ctx)
}

func (l *Redis) Reserve(ctx context.Context, m registry.Model, tokens int) bool {
	if l.rdb == nil {
		return true
	}
	now := l.clock()
	rpmKey, tpmKey, rpdKey := l.keys(m.ID, now)

	ok, err := reserveScript.Run(ctx, l.rdb,
		[]string{rpmKey, tpmKey, rpdKey},
		m.Limits.RPM, m.Limits.TPM, m.Limits.RPD,
		tokens, int64((2 * minuteWindow).Seconds()), int64(dayKeyTTL(now).Seconds()),
	).Int64()
	if err != nil {
		// Fail open on Redis errors
		return true
	}
	return ok == 1
}

func (l *Redis) Release(ctx context.Context, m registry.Model, tokens int) {
	if l.rdb == nil {
		return
	}
	now := l.clock()
	rpmKey, tpmKey, rpdKey := l.keys(m.ID, now)

	pipe := l.rdb.Pipeline()
	pipe.DecrBy(ctx, rpmKey, 1)
	pipe.DecrBy(ctx, tpmKey, int64(tokens))
	pipe.DecrBy(ctx, rpdKey, 1)
	pipe.Exec(ctx)
}

func (l *Redis) Usage(ctx context.Context, modelID string) Counters {
	now := l.clock()
	c := Counters{
		RPMWindowStart: now.Truncate(minuteWindow),
		TPMWindowStart: now.Truncate(minuteWindow),
		RPDWindowStart: dayStart(now),
	}
	if l.rdb == nil {
		return c
	}
	rpmKey, tpmKey, rpdKey := l.keys(modelID, now)
	vals, err := l.rdb.MGet(ctx, rpmKey, tpmKey, rpdKey).Result()
	if err != nil {
		return c
	}
	c.RPMCount = toInt(vals[0])
	c.TPMCount = toInt(vals[1])
	c.RPDCount = toInt(vals[2])
	return c
}

// dayKeyTTL keeps the daily key until end of day UTC plus an hour of
// slack, matching the calendar-day window.
func dayKeyTTL(now time.Time) time.Duration {
	return dayStart(now).Add(24*time.Hour + time.Hour).Sub(now)
}

func toInt(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
