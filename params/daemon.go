package params

type ListenerConfig struct {
	Network string
	Address string
}

type RouteDaemonConfig struct {
	ListenerConfig
	RouteConfig *RouteConfig

	// MaxBodyBytes bounds request bodies for barrier uploads and route requests.
	MaxBodyBytes int64
}

func DefaultRouteDaemonConfig() *RouteDaemonConfig {
	return &RouteDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3030",
		},
		RouteConfig:  DefaultRouteConfig(),
		MaxBodyBytes: 64 << 20,
	}
}
