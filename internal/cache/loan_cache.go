package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const (
	keyPrefix     = "lending:loan:"
	fieldVersion  = "version"
	fieldDocument = "doc"
)

// setIfNewer stores the document unless the cached entry carries a higher
// version. Readers filling a miss can then never overwrite a writer's newer
// copy.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'doc', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// LoanCache keeps read copies of loans. The database stays the source of
// truth; a miss or a failing cache never blocks an operation.
type LoanCache interface {
	Get(ctx context.Context, loanID string) (*domain.Loan, bool, error)
	// Set stores the loan unless the cache already holds a newer version.
	Set(ctx context.Context, loan *domain.Loan) error
	Invalidate(ctx context.Context, loanID string) error
}

type redisLoanCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLoanCache(client *redis.Client, ttl time.Duration) LoanCache {
	return &redisLoanCache{client: client, ttl: ttl}
}

func Key(loanID string) string {
	return keyPrefix + loanID
}

func (c *redisLoanCache) Get(ctx context.Context, loanID string) (*domain.Loan, bool, error) {
	raw, err := c.client.HGet(ctx, Key(loanID), fieldDocument).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, customError.WrapCacheError(err)
	}

	var loan domain.Loan
	if err := json.Unmarshal(raw, &loan); err != nil {
		return nil, false, customError.WrapCacheError(err)
	}
	return &loan, true, nil
}

func (c *redisLoanCache) Set(ctx context.Context, loan *domain.Loan) error {
	raw, err := json.Marshal(loan)
	if err != nil {
		return customError.WrapCacheError(err)
	}
	args := []interface{}{strconv.FormatInt(loan.Version, 10), raw, c.ttl.Milliseconds()}
	if err := setIfNewer.Run(ctx, c.client, []string{Key(loan.ID)}, args...).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

func (c *redisLoanCache) Invalidate(ctx context.Context, loanID string) error {
	if err := c.client.Del(ctx, Key(loanID)).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}
