// Command poolserver runs a sharded buffer pool behind the admin HTTP
// surface in pkg/adminserver.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/halvardsen/pagepool/pkg/adminserver"
	"github.com/halvardsen/pagepool/pkg/bufferpool"
	"github.com/halvardsen/pagepool/pkg/config"
	"github.com/halvardsen/pagepool/pkg/storage"
)

func main() {
	host := flag.String("host", "localhost", "Admin server host address")
	port := flag.Int("port", 8080, "Admin server port")
	dataDir := flag.String("data-dir", "./data", "Data directory, one file per shard")
	poolSize := flag.Int("pool-size", 1000, "Frames per shard (1 frame = 4KB, default 1000 = ~4MB per shard)")
	shardCount := flag.Int("shards", 1, "Number of parallel pool shards")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin for the admin surface")
	enableGraphQL := flag.Bool("graphql", false, "Enable the read-only GraphQL introspection endpoint and GraphiQL playground")
	enableEvents := flag.Bool("events", false, "Enable the /ws/events live event stream")
	adminTokenHash := flag.String("admin-token-hash", "", "PBKDF2 hash (from poolctl token) gating the /flush route; empty disables auth")
	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.Host = *host
	cfg.Port = *port
	cfg.DataDir = *dataDir
	cfg.PoolSize = *poolSize
	cfg.ShardCount = *shardCount
	cfg.AllowedOrigins = []string{*corsOrigin}
	cfg.EnableGraphQL = *enableGraphQL
	cfg.EnableEvents = *enableEvents
	cfg.AdminTokenHash = *adminTokenHash

	pool, err := openPool(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open buffer pool: %v\n", err)
		os.Exit(1)
	}

	srv, err := adminserver.New(cfg, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "admin server error: %v\n", err)
		os.Exit(1)
	}
}

// openPool creates one data file and one pool instance per shard
// under cfg.DataDir and composes them into a ParallelPool.
func openPool(cfg *config.Config) (*bufferpool.ParallelPool, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dms := make([]storage.DiskManager, cfg.ShardCount)
	for i := 0; i < cfg.ShardCount; i++ {
		path := filepath.Join(cfg.DataDir, fmt.Sprintf("shard-%d.db", i))
		dm, err := storage.NewFileDiskManager(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open shard %d data file: %w", i, err)
		}
		dms[i] = dm
	}

	return bufferpool.NewParallelPool(cfg.PoolSize, dms, storage.NoopLogManager{})
}
