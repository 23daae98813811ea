package history

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// PrimitiveStorage is the key/value surface the snapshot archive writes
// committed tick state through. Implementations exist for in-process maps
// and for redis.
type PrimitiveStorage interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ PrimitiveStorage = &MapStorage{}

// MapStorage is the in-memory PrimitiveStorage.
type MapStorage struct {
	internalMap map[string][]byte
}

func NewMapStorage() *MapStorage {
	return &MapStorage{internalMap: map[string][]byte{}}
}

func (m *MapStorage) GetBytes(_ context.Context, key string) ([]byte, error) {
	v, ok := m.internalMap[key]
	if !ok {
		return nil, eris.Errorf("key %q not found", key)
	}
	return v, nil
}

func (m *MapStorage) SetBytes(_ context.Context, key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	m.internalMap[key] = buf
	return nil
}

func (m *MapStorage) Keys(context.Context) ([]string, error) {
	acc := make([]string, 0, len(m.internalMap))
	for k := range m.internalMap {
		acc = append(acc, k)
	}
	return acc, nil
}

func (m *MapStorage) Clear(context.Context) error {
	m.internalMap = map[string][]byte{}
	return nil
}

func (m *MapStorage) Close(context.Context) error { return nil }

var _ PrimitiveStorage = &RedisStorage{}

// RedisStorage is the redis-backed PrimitiveStorage.
type RedisStorage struct {
	currentClient redis.Cmdable
	namespace     string
}

func NewRedisStorage(client redis.Cmdable, namespace string) *RedisStorage {
	return &RedisStorage{currentClient: client, namespace: namespace}
}

func (r *RedisStorage) namespaced(key string) string {
	return r.namespace + ":" + key
}

func (r *RedisStorage) GetBytes(ctx context.Context, key string) ([]byte, error) {
	bz, err := r.currentClient.Get(ctx, r.namespaced(key)).Bytes()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

func (r *RedisStorage) SetBytes(ctx context.Context, key string, value []byte) error {
	return eris.Wrap(r.currentClient.Set(ctx, r.namespaced(key), value, 0).Err(), "")
}

func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.currentClient.Keys(ctx, r.namespaced("*")).Result()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	prefix := len(r.namespace) + 1
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[prefix:])
	}
	return out, nil
}

func (r *RedisStorage) Clear(ctx context.Context) error {
	keys, err := r.currentClient.Keys(ctx, r.namespaced("*")).Result()
	if err != nil {
		return eris.Wrap(err, "")
	}
	if len(keys) == 0 {
		return nil
	}
	return eris.Wrap(r.currentClient.Del(ctx, keys...).Err(), "")
}

func (r *RedisStorage) Close(context.Context) error {
	if closer, ok := r.currentClient.(interface{ Close() error }); ok {
		return eris.Wrap(closer.Close(), "")
	}
	return nil
}
