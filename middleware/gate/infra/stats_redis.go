package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"request-gate/middleware/gate/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega eventos em hashes do Redis, somados entre todos os
// processos que apontam para o mesmo prefixo.
//
// Layout (prefixo padrão "gate:stats"):
//
//	<prefix>:total                 hash kind -> n (não expira)
//	<prefix>:profiles              set com os nomes de perfil vistos
//	<prefix>:profile:<nome>        hash kind -> n (não expira)
//	<prefix>:minute:<yyyymmddhhmm> hash kind -> n (ttl)
//	<prefix>:key:<identidade>      hash kind -> n (ttl, só com trackKeys)
type RedisStatsStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration

	minuteBuckets bool
	trackKeys     bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

// WithStatsBucket aceita "minute" (padrão) ou "none".
func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.minuteBuckets = strings.ToLower(strings.TrimSpace(bucket)) != "none"
	}
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:           rdb,
		prefix:        "gate:stats",
		ttl:           24 * time.Hour,
		minuteBuckets: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

// Record grava o evento. Transições do próprio store (degraded/recovered)
// são ignoradas: nesse momento o Redis é justamente quem está fora.
func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	if ev.Kind == domain.EventDegraded || ev.Kind == domain.EventRecovered {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	kind := string(ev.Kind)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.key("total"), kind, 1)

	if p := strings.TrimSpace(ev.Profile); p != "" {
		pipe.SAdd(ctx, s.key("profiles"), p)
		pipe.HIncrBy(ctx, s.key("profile", p), kind, 1)
	}
	if s.minuteBuckets {
		s.bumpExpiring(ctx, pipe, s.key("minute", at.UTC().Format("200601021504")), kind)
	}
	if id := strings.TrimSpace(string(ev.Key)); s.trackKeys && id != "" {
		s.bumpExpiring(ctx, pipe, s.key("key", id), kind)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record stats event %s: %w", kind, err)
	}
	return nil
}

func (s *RedisStatsStore) bumpExpiring(ctx context.Context, pipe redis.Pipeliner, key, kind string) {
	pipe.HIncrBy(ctx, key, kind, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// Snapshot lê os totais e os contadores por perfil de todo o cluster.
func (s *RedisStatsStore) Snapshot(ctx context.Context) (StatsSnapshot, error) {
	profiles, err := s.rdb.SMembers(ctx, s.key("profiles")).Result()
	if err != nil {
		return StatsSnapshot{}, fmt.Errorf("read stats profiles: %w", err)
	}

	pipe := s.rdb.Pipeline()
	total := pipe.HGetAll(ctx, s.key("total"))
	perProfile := make(map[string]*redis.MapStringStringCmd, len(profiles))
	for _, p := range profiles {
		perProfile[p] = pipe.HGetAll(ctx, s.key("profile", p))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return StatsSnapshot{}, fmt.Errorf("read stats: %w", err)
	}

	snap := StatsSnapshot{Total: parseCounters(total.Val()), ByProfile: make(map[string]Counters, len(profiles))}
	for p, cmd := range perProfile {
		snap.ByProfile[p] = parseCounters(cmd.Val())
	}
	return snap, nil
}

func parseCounters(raw map[string]string) Counters {
	out := make(Counters, len(raw))
	for k, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[domain.EventKind(k)] = n
		}
	}
	return out
}
