package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/aditip149209/okview/pkg/node"
)

const DefaultPrefix = "/okview/nodes/"

// kv is the part of the etcd client the store uses.
type kv interface {
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
}

// Etcd stores nodes as JSON values under a key prefix, one key per node id.
type Etcd struct {
	kv     kv
	prefix string
	client *clientv3.Client
}

func DialEtcd(endpoints []string, prefix string, timeout time.Duration) (*Etcd, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to etcd %v: %w", endpoints, err)
	}
	e := NewEtcd(cli, prefix)
	e.client = cli
	return e, nil
}

func NewEtcd(c kv, prefix string) *Etcd {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Etcd{kv: c, prefix: prefix}
}

func (e *Etcd) key(id uuid.UUID) string {
	return e.prefix + id.String()
}

func (e *Etcd) Put(ctx context.Context, n node.Node) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding node %s: %w", n.ID, err)
	}
	if _, err := e.kv.Put(ctx, e.key(n.ID), string(b)); err != nil {
		return fmt.Errorf("storing node %s: %w", n.ID, err)
	}
	return nil
}

func (e *Etcd) Get(ctx context.Context, id uuid.UUID) (node.Node, error) {
	resp, err := e.kv.Get(ctx, e.key(id))
	if err != nil {
		return node.Node{}, fmt.Errorf("reading node %s: %w", id, err)
	}
	if len(resp.Kvs) == 0 {
		return node.Node{}, ErrNotFound
	}
	var n node.Node
	if err := json.Unmarshal(resp.Kvs[0].Value, &n); err != nil {
		return node.Node{}, fmt.Errorf("decoding node %s: %w", id, err)
	}
	return n, nil
}

func (e *Etcd) List(ctx context.Context) ([]node.Node, error) {
	resp, err := e.kv.Get(ctx, e.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("listing nodes under %s: %w", e.prefix, err)
	}
	out := make([]node.Node, 0, len(resp.Kvs))
	for _, ev := range resp.Kvs {
		var n node.Node
		if err := json.Unmarshal(ev.Value, &n); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", ev.Key, err)
		}
		out = append(out, n)
	}
	sortNodes(out)
	return out, nil
}

func (e *Etcd) Delete(ctx context.Context, id uuid.UUID) error {
	resp, err := e.kv.Delete(ctx, e.key(id))
	if err != nil {
		return fmt.Errorf("deleting node %s: %w", id, err)
	}
	if resp.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the client when the store dialed it itself.
func (e *Etcd) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
