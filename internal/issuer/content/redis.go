package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"proofpass/pkg/domain"
	"proofpass/pkg/platform/sentinel"
)

const defaultKeyPrefix = "proofpass:content:"

// Shared coders. Both are safe for concurrent EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("content: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("content: zstd decoder initialization failed: " + err.Error())
	}
}

// Redis stores zstd-compressed blobs keyed by content id. Content is
// immutable so entries never expire.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: defaultKeyPrefix}
}

func (r *Redis) key(id domain.ContentID) string {
	return r.prefix + id.String()
}

func (r *Redis) Put(ctx context.Context, data []byte) (domain.ContentID, error) {
	id := ID(data)
	compressed := zstdEncoder.EncodeAll(data, nil)
	if err := r.client.SetNX(ctx, r.key(id), compressed, 0).Err(); err != nil {
		return "", fmt.Errorf("store content %s: %w", id, err)
	}
	return id, nil
}

func (r *Redis) Get(ctx context.Context, id domain.ContentID) ([]byte, error) {
	compressed, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", id, err)
	}
	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress content %s: %w", id, err)
	}
	return data, nil
}
