package aggregator

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"teleport/pkg/wallet"
)

const DefaultIntegrator = "monad-teleport"

// Config is the state shared by the quote service, the executor and the
// aggregator clients: integrator identity plus the currently bound signer.
// The host owns it and passes it by pointer.
type Config struct {
	Integrator string
	APIKey     string

	mu       sync.RWMutex
	provider wallet.Provider
	signer   wallet.Signer
	chainID  int64
}

func NewConfig(integrator, apiKey string) *Config {
	if integrator == "" {
		integrator = DefaultIntegrator
	}
	return &Config{
		Integrator: integrator,
		APIKey:     apiKey,
	}
}

// Connect binds the provider and its current signer
func (c *Config) Connect(ctx context.Context, provider wallet.Provider) error {
	signer, err := provider.Signer(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.provider = provider
	c.signer = signer
	c.chainID = signer.ChainID()
	return nil
}

// Rebind replaces the bound signer, e.g. after the account switched chains
func (c *Config) Rebind(signer wallet.Signer, chainID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.signer = signer
	c.chainID = chainID
}

// Disconnect drops the provider and signer
func (c *Config) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.provider = nil
	c.signer = nil
	c.chainID = 0
}

func (c *Config) Signer() (wallet.Signer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.signer, c.signer != nil
}

func (c *Config) Chain() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.chainID
}

// Account is the connected address, if any
func (c *Config) Account() (common.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.signer == nil {
		return common.Address{}, false
	}
	return c.signer.Address(), true
}

// EnsureChain returns a signer on chainID, switching the provider if needed
func (c *Config) EnsureChain(ctx context.Context, chainID int64) (wallet.Signer, error) {
	c.mu.RLock()
	signer, provider, current := c.signer, c.provider, c.chainID
	c.mu.RUnlock()

	if signer == nil {
		return nil, wallet.ErrNotConnected
	}
	if current == chainID {
		return signer, nil
	}
	if provider == nil {
		return nil, fmt.Errorf("cannot switch to chain %d: no wallet provider", chainID)
	}

	switched, err := provider.SwitchChain(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to switch to chain %d: %w", chainID, err)
	}

	c.Rebind(switched, chainID)
	return switched, nil
}
