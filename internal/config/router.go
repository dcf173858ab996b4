package config

// RouterConfig configures the adaptive router.
type RouterConfig struct {
	// OnDeviceThreshold is the confidence at or above which on-device processing is preferred.
	OnDeviceThreshold float64 `yaml:"on-device-threshold" json:"on-device-threshold"`

	// HistorySampleCap is the number of recent outcomes kept per (intent, path).
	HistorySampleCap int `yaml:"history-sample-cap" json:"history-sample-cap"`

	// SuccessRateFloor is the recent success rate below which a path is substituted.
	SuccessRateFloor float64 `yaml:"success-rate-floor" json:"success-rate-floor"`

	// MinSamples is the number of samples required before history is trusted.
	MinSamples int `yaml:"min-samples" json:"min-samples"`
}

// SanitizeRouter clamps router settings to usable values.
func (cfg *Config) SanitizeRouter() {
	r := &cfg.Router

	if r.OnDeviceThreshold <= 0 || r.OnDeviceThreshold > 1 {
		r.OnDeviceThreshold = 0.75
	}
	if r.HistorySampleCap <= 0 {
		r.HistorySampleCap = 20
	}
	if r.HistorySampleCap > 1000 {
		r.HistorySampleCap = 1000
	}
	if r.SuccessRateFloor < 0 || r.SuccessRateFloor > 1 {
		r.SuccessRateFloor = 0.5
	}
	if r.MinSamples < 1 {
		r.MinSamples = 1
	}
	if r.MinSamples > r.HistorySampleCap {
		r.MinSamples = r.HistorySampleCap
	}
}
