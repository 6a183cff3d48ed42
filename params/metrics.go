package params

import "github.com/ethereum/go-ethereum/metrics"

func init() {
	metrics.Enabled = true
}
