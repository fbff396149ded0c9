package xconf_test

import (
	"fmt"

	"github.com/omeyang/xtail/pkg/config/xconf"
)

func ExampleLoadBytes() {
	cfg, err := xconf.LoadBytes([]byte(`
sampling:
  background_rate: 0.01
  duration_threshold: 2s
decision_cache:
  dropped: 4096
`), xconf.FormatYAML)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(cfg.Sampling.Policy)
	fmt.Println(cfg.Sampling.DurationThreshold, cfg.Sampling.BackgroundRate)
	fmt.Println(cfg.DecisionCache.Kept, cfg.DecisionCache.Dropped)

	// Output:
	// error_or_duration
	// 2s 0.01
	// 65536 4096
}
