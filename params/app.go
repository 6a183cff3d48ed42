package params

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"time"
)

var DatadirRoot = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".routr")
	}
	return filepath.Join(home, ".routr")
}()

// LedgerDBName is the default file name of the outcome ledger.
var LedgerDBName = "ledger.db"

// LedgerOutcomesBucket holds one routing outcome per deployment.
var LedgerOutcomesBucket = []byte("outcomes")

// DefaultBatchSize bounds channel buffers in streaming readers.
var DefaultBatchSize = 10_000

// CacheBarrierLayerTTL is how long an uploaded barrier layer is kept
// by the routing daemon after its last use.
var CacheBarrierLayerTTL = 6 * time.Hour

// DefaultProgressInterval is how often streaming readers log throughput.
var DefaultProgressInterval = 10 * time.Second

var DefaultGZipCompressionLevel = gzip.BestCompression

// LedgerOpenTimeout bounds how long opening the ledger waits for another
// process to release its file lock.
var LedgerOpenTimeout = 30 * time.Second
