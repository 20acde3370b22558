package config

// Default values for the tuning file. The login delays match the timings the
// hosted sign-in pages have been observed to need.
const (
	defaultLogLevel      = "info"
	defaultGraphBaseURL  = "https://graph.microsoft.com/v1.0"
	defaultHTTPTimeout   = "60s"
	defaultPageLoadDelay = "5s"
	defaultElementWait   = "3s"
	defaultRedirectWait  = "10s"
	defaultBandwidth     = "0"
)

// DefaultTuning returns a Tuning populated with all default values. It is the
// starting point for TOML decoding, so unset keys keep their defaults.
func DefaultTuning() *Tuning {
	return &Tuning{
		LogLevel:      defaultLogLevel,
		GraphBaseURL:  defaultGraphBaseURL,
		HTTPTimeout:   defaultHTTPTimeout,
		PageLoadDelay: defaultPageLoadDelay,
		ElementWait:   defaultElementWait,
		RedirectWait:  defaultRedirectWait,

		BandwidthLimit: defaultBandwidth,
	}
}
