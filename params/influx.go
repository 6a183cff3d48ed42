package params

// InfluxConfig addresses an InfluxDB v2 bucket that routing outcomes are exported to.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Enabled reports whether an export target is configured.
func (c *InfluxConfig) Enabled() bool {
	return c != nil && c.URL != ""
}
