package shardmap

import (
	"context"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/xerrors"
)

// DefaultEtcdPrefix EtcdStore 的默认键前缀
const DefaultEtcdPrefix = "/shardkit/shardmap"

// EtcdStore 以 CreateRevision == 0 的事务写入映射，键为 <prefix>/<shard key>
type EtcdStore struct {
	client *clientv3.Client
	prefix string
	logger clog.Logger
}

// NewEtcdStore 创建 Etcd 映射存储，conn 需已连接
func NewEtcdStore(conn connector.EtcdConnector, opts ...Option) (*EtcdStore, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "etcd connector is required and must be connected")
	}
	o := applyOptions("etcd", opts...)
	if o.prefix == "" {
		o.prefix = DefaultEtcdPrefix
	}
	return &EtcdStore{
		client: conn.GetClient(),
		prefix: strings.TrimSuffix(o.prefix, "/"),
		logger: o.logger,
	}, nil
}

func (s *EtcdStore) key(shardKey string) string {
	return s.prefix + "/" + shardKey
}

func (s *EtcdStore) Record(ctx context.Context, shardKey, shard string) error {
	if err := validateMapping(shardKey, shard); err != nil {
		return err
	}
	key := s.key(shardKey)
	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, shard)).
		Commit()
	if err != nil {
		s.logger.ErrorContext(ctx, "record mapping failed", clog.String("shard_key", shardKey), clog.Error(err))
		return xerrors.Wrap(err, "shardmap: etcd txn")
	}
	if !resp.Succeeded {
		return xerrors.Wrapf(ErrDuplicateKey, "key %q", shardKey)
	}
	return nil
}

func (s *EtcdStore) Lookup(ctx context.Context, shardKey string) (string, error) {
	if err := validateKey(shardKey); err != nil {
		return "", err
	}
	resp, err := s.client.Get(ctx, s.key(shardKey))
	if err != nil {
		return "", xerrors.Wrap(err, "shardmap: etcd get")
	}
	if len(resp.Kvs) == 0 {
		return "", xerrors.Wrapf(ErrNotFound, "key %q", shardKey)
	}
	return string(resp.Kvs[0].Value), nil
}
