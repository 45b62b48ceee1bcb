package infra

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"request-gate/middleware/gate/domain"

	"github.com/redis/go-redis/v9"
)

// incrScript faz INCR e aplica o PEXPIRE no mesmo round trip.
// ARGV[1] = ttl em ms, ARGV[2] = "1" para sempre renovar o ttl.
// Retorna {valor, pttl}.
var incrScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
local ttl = tonumber(ARGV[1])
local pttl = redis.call('PTTL', KEYS[1])
if ttl > 0 and (ARGV[2] == '1' or pttl < 0) then
  redis.call('PEXPIRE', KEYS[1], ttl)
  pttl = ttl
end
return {v, pttl}
`)

// decrScript decrementa sem descer de zero e sem recriar a chave.
var decrScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
if tonumber(v) <= 0 then return 0 end
return redis.call('DECR', KEYS[1])
`)

// RedisStore é o reputation store compartilhado entre processos.
type RedisStore struct {
	rdb redis.UniversalClient

	// timeout limita cada chamada individual.
	timeout time.Duration
}

type RedisOption func(*RedisStore)

func WithCallTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.timeout = d }
}

func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:     rdb,
		timeout: 150 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*RedisStore)(nil)

func (s *RedisStore) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisStore) wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.StoreError{Op: op, Key: key, Timeout: isTimeout(err), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (s *RedisStore) incr(ctx context.Context, op, key string, ttl time.Duration, refresh bool) (domain.Counter, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	flag := "0"
	if refresh {
		flag = "1"
	}
	vals, err := incrScript.Run(cctx, s.rdb, []string{key}, ttl.Milliseconds(), flag).Int64Slice()
	if err != nil {
		return domain.Counter{}, s.wrap(op, key, err)
	}
	if len(vals) != 2 {
		return domain.Counter{}, s.wrap(op, key, errors.New("unexpected script reply"))
	}

	c := domain.Counter{Value: vals[0]}
	if vals[1] > 0 {
		c.ExpiresAt = time.Now().Add(time.Duration(vals[1]) * time.Millisecond)
	}
	return c, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (domain.Counter, error) {
	return s.incr(ctx, "incr", key, ttl, false)
}

func (s *RedisStore) IncrementRefresh(ctx context.Context, key string, ttl time.Duration) (domain.Counter, error) {
	return s.incr(ctx, "incr-refresh", key, ttl, true)
}

func (s *RedisStore) Decrement(ctx context.Context, key string) (int64, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	n, err := decrScript.Run(cctx, s.rdb, []string{key}).Int64()
	if err != nil {
		return 0, s.wrap("decr", key, err)
	}
	return n, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (domain.Entry, bool, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	pipe := s.rdb.Pipeline()
	get := pipe.Get(cctx, key)
	pttl := pipe.PTTL(cctx, key)
	if _, err := pipe.Exec(cctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.Entry{}, false, s.wrap("get", key, err)
	}

	v, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return domain.Entry{}, false, nil
	}
	if err != nil {
		return domain.Entry{}, false, s.wrap("get", key, err)
	}

	ent := domain.Entry{Value: v}
	if d := pttl.Val(); d > 0 {
		ent.ExpiresAt = time.Now().Add(d)
	}
	return ent, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	return s.wrap("set", key, s.rdb.Set(cctx, key, value, ttl).Err())
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	return s.wrap("del", key, s.rdb.Del(cctx, key).Err())
}

func (s *RedisStore) AppendBounded(ctx context.Context, key, value string, maxLen int) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	pipe := s.rdb.TxPipeline()
	pipe.LPush(cctx, key, value)
	if maxLen > 0 {
		pipe.LTrim(cctx, key, 0, int64(maxLen-1))
	}
	_, err := pipe.Exec(cctx)
	return s.wrap("append", key, err)
}

func (s *RedisStore) Recent(ctx context.Context, key string, n int) ([]string, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	out, err := s.rdb.LRange(cctx, key, 0, stop).Result()
	if err != nil {
		return nil, s.wrap("lrange", key, err)
	}
	return out, nil
}

// Ping verifica se o Redis responde dentro do timeout da chamada.
func (s *RedisStore) Ping(ctx context.Context) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.wrap("ping", "", s.rdb.Ping(cctx).Err())
}

// RedisConfig reúne os parâmetros de conexão.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient cria o client sem exigir que o Redis esteja de pé:
// o gate nasce em modo degradado e se recupera sozinho.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis address is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   -1,
	}), nil
}
