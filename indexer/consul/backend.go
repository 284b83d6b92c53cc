package consul

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/mediameta/indexer"
)

// ConsulBackend keeps the index in the HashiCorp Consul KV store.
//
// Architecture:
// - Every item is one KV entry under <prefix>items/, its key being the escaped file path
// - The entry holds the JSON encoded item, native values included
// - Queries list the prefix and evaluate in process
// - SetMetadata uses check-and-set on the entry's ModifyIndex
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Every query reads the whole prefix, so it suits small libraries and shared setups
type ConsulBackend struct {
	indexer.Broadcaster
	client *api.Client
	kv     *api.KV

	// Configuration
	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix for all keys in Consul KV (default: "mediameta/")
	Prefix string
}

// NewConsulBackend creates a new Consul-backed indexer.
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	if config.Prefix == "" {
		config.Prefix = "mediameta/"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open checks that the agent answers.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	if _, err := cb.client.Status().Leader(); err != nil {
		return fmt.Errorf("failed to reach consul: %w", err)
	}
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *indexer.Capabilities {
	return indexer.NewCapabilities(
		indexer.CapabilityQuery,
		indexer.CapabilityUnique,
		indexer.CapabilityWrite,
		indexer.CapabilityNotify,
		indexer.CapabilityPersistent,
		indexer.CapabilityAtomic,
	)
}

// itemsPrefix returns the KV prefix below which every item is stored.
func (cb *ConsulBackend) itemsPrefix() string {
	prefix := strings.TrimPrefix(cb.config.Prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + "items/"
}

// buildKey constructs the full Consul KV key of the item stored for path.
func (cb *ConsulBackend) buildKey(path string) string {
	return cb.itemsPrefix() + url.PathEscape(path)
}
