package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/encoding"
	"github.com/go-kratos/kratos/v2/encoding/json"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/yola1107/ludo/internal/biz"
	"github.com/yola1107/ludo/internal/biz/table"
	"github.com/yola1107/ludo/internal/conf"
	"github.com/yola1107/ludo/pkg/codes"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewSnapshotRepo, NewRedis)

const keyPrefix = "ludo:game:"

// Data .
type Data struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewData .
func NewData(c *conf.Data, rdb *redis.Client) (*Data, func(), error) {
	cleanup := func() {
		log.Info("closing the data resources")
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	d := &Data{redis: rdb}
	if c != nil && c.Redis != nil {
		d.ttl = c.Redis.SnapshotTTL()
	}
	return d, cleanup, nil
}

// NewRedis 创建客户端, 不做连接检查, 首次读写时才建立连接
func NewRedis(c *conf.Data) *redis.Client {
	r := &conf.Redis{}
	if c != nil && c.Redis != nil {
		r = c.Redis
	}
	return redis.NewClient(&redis.Options{
		Addr:        r.Addr,
		Password:    r.Password,
		DB:          int(r.Db),
		DialTimeout: r.DialTimeout(),
	})
}

type snapshotRepo struct {
	data  *Data
	codec encoding.Codec
	log   *log.Helper
}

// NewSnapshotRepo .
func NewSnapshotRepo(data *Data, logger log.Logger) biz.SnapshotRepo {
	return &snapshotRepo{
		data:  data,
		codec: encoding.GetCodec(json.Name),
		log:   log.NewHelper(logger),
	}
}

func gameKey(id string) string { return keyPrefix + id }

func (r *snapshotRepo) Save(ctx context.Context, s *table.Snapshot) error {
	if s == nil || s.GameID == "" {
		return fmt.Errorf("snapshot without game id")
	}
	b, err := r.codec.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.data.redis.Set(ctx, gameKey(s.GameID), b, r.data.ttl).Err(); err != nil {
		return err
	}
	r.log.Debugf("snapshot saved. game=%s stage=%v moves=%d", s.GameID, s.Stage, s.Moves)
	return nil
}

func (r *snapshotRepo) Load(ctx context.Context, id string) (*table.Snapshot, error) {
	b, err := r.data.redis.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, codes.ErrNotFound.WithMetadata(map[string]string{"game": id})
	}
	if err != nil {
		return nil, err
	}
	s := &table.Snapshot{}
	if err := r.codec.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return s, nil
}
