package cmd

import (
	"testing"
	"time"

	"github.com/rotblauer/routr/params"
	"github.com/spf13/viper"
)

func TestRouteConfigFromFlags(t *testing.T) {
	defer viper.Reset()
	viper.Reset()

	fs := routingFlags()
	if err := viper.BindPFlags(fs); err != nil {
		t.Fatal(err)
	}
	if err := fs.Parse([]string{"--buffer", "250", "--tie-break", "none", "--search-timeout", "2s", "--workers", "3"}); err != nil {
		t.Fatal(err)
	}
	c, err := routeConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.BufferDistance != 250 || c.TieBreak != params.TieBreakNone || c.SearchTimeout != 2*time.Second || c.Workers != 3 {
		t.Errorf("unexpected config %+v", c)
	}
	defaults := params.DefaultRouteConfig()
	if c.MaxBufferExpansions != defaults.MaxBufferExpansions || c.DetourCacheSize != defaults.DetourCacheSize {
		t.Errorf("unset flags should keep defaults, got %+v", c)
	}

	if err := fs.Parse([]string{"--tie-break", "longest"}); err != nil {
		t.Fatal(err)
	}
	if _, err := routeConfig(); err == nil {
		t.Error("expected an invalid tie-break to fail validation")
	}
}
