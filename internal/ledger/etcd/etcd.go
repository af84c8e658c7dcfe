// Package etcd implements the ledger Client on an etcd v3 cluster.
//
// etcd gives linearizable per-key reads and writes across machines, which
// makes it the backend of choice when several agencies share one ledger
// over the network. Only plain Get/Put are used; the registry's contract
// deliberately excludes etcd's transactions so every backend stays
// interchangeable.
package etcd

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

func init() {
	ledger.Register(ledger.TypeEtcd, func(cfg ledger.Config) (ledger.Client, error) {
		return New(cfg.Etcd)
	})
}

// Client is an etcd-backed ledger client.
type Client struct {
	cli *clientv3.Client
}

// New connects to the cluster described by cfg.
func New(cfg ledger.EtcdConfig) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd ledger requires at least one endpoint")
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &Client{cli: cli}, nil
}

// Name returns the backend type.
func (c *Client) Name() ledger.Type {
	return ledger.TypeEtcd
}

// IsAvailable checks the status of the first endpoint.
func (c *Client) IsAvailable(ctx context.Context) bool {
	endpoints := c.cli.Endpoints()
	if len(endpoints) == 0 {
		return false
	}
	_, err := c.cli.Status(ctx, endpoints[0])
	return err == nil
}

// GetData fetches the value under key. A missing key yields nil, nil.
func (c *Client) GetData(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.cli.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("etcd get %s: %v: %w", key, err, ledger.ErrUnavailable)
	}
	if len(resp.Kvs) == 0 || len(resp.Kvs[0].Value) == 0 {
		return nil, nil
	}
	return resp.Kvs[0].Value, nil
}

// SetData overwrites the value under key.
func (c *Client) SetData(ctx context.Context, key string, value []byte) error {
	if _, err := c.cli.Put(ctx, key, string(value)); err != nil {
		return fmt.Errorf("etcd put %s: %v: %w", key, err, ledger.ErrUnavailable)
	}
	return nil
}

// Close closes the cluster connection.
func (c *Client) Close() error {
	return c.cli.Close()
}
