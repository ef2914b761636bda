package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@redis.example.com:6380/2", false)
	require.NoError(t, err)
	require.Equal(t, "redis.example.com:6380", opt.Addr)
	require.Equal(t, "secret", opt.Password)
	require.Equal(t, 2, opt.DB)
	require.Nil(t, opt.TLSConfig)
}

func TestRedisClientOptInvalidURL(t *testing.T) {
	_, err := redisClientOpt("not-a-url", false)
	require.Error(t, err)
}

func TestRedisClientOptTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://redis.example.com:6380", false)
	require.NoError(t, err)
	require.NotNil(t, opt.TLSConfig)
	require.False(t, opt.TLSConfig.InsecureSkipVerify)

	opt, err = redisClientOpt("rediss://redis.example.com:6380", true)
	require.NoError(t, err)
	require.NotNil(t, opt.TLSConfig)
	require.True(t, opt.TLSConfig.InsecureSkipVerify)
}

// Managed Redis providers sometimes terminate TLS behind a redis:// URL;
// the insecure flag opts into a permissive TLS config in that case.
func TestRedisClientOptInsecureFlagOnPlainURL(t *testing.T) {
	opt, err := redisClientOpt("redis://redis.example.com:6379", true)
	require.NoError(t, err)
	require.NotNil(t, opt.TLSConfig)
	require.True(t, opt.TLSConfig.InsecureSkipVerify)
}

func TestRedisClientOptConnects(t *testing.T) {
	srv := miniredis.RunT(t)

	opt, err := redisClientOpt("redis://"+srv.Addr(), false)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: opt.Addr, Password: opt.Password, DB: opt.DB})
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()).Err())
}
