package sqlstore

import (
	"context"

	"github.com/ripplecache/ripplecache/pkg/store"
)

// Factory opens a single SQL-backed Store and hands out the same
// connection to every caller, mirroring memstore.Factory's sharing model.
type Factory struct {
	store *Store
}

// NewFactory connects to dbURL eagerly and returns a Factory wrapping it.
func NewFactory(ctx context.Context, dbURL string, poolCfg *PoolConfig) (*Factory, error) {
	s, err := Open(ctx, dbURL, poolCfg)
	if err != nil {
		return nil, err
	}

	return &Factory{store: s}, nil
}

// NewConnection returns the shared SQL-backed store, ignoring ctx.
func (f *Factory) NewConnection(_ context.Context) (store.Connection, error) {
	return f.store, nil
}
