package server

// HTTPServerConfig holds the link listing API configuration
type HTTPServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
	// DefaultUser owns requests that carry no X-User-ID header
	DefaultUser  string `mapstructure:"default_user"  yaml:"default_user"`
	PageSize     int    `mapstructure:"page_size"     yaml:"page_size"`
	ReadTimeout  string `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout"`
}
