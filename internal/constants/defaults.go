package constants

import "time"

// Centralized default values for timeouts, intervals, and related settings.
// These provide sane defaults; environment/config may override where supported.

const (
	// Tag cache
	CacheKeyPrefix  = "ai-tags:"
	CacheTTLDefault = 30 * 24 * time.Hour
	CacheOpTimeout  = 3 * time.Second

	// Google Places
	PlacesOperationTimeout  = 10 * time.Second
	PlacesRequestTimeout    = 12 * time.Second
	PlacesSlowCallThreshold = 1500 * time.Millisecond
	PlacesRPSDefault        = 10
	PlacesBurstDefault      = 20

	// Vision providers
	VisionDefaultAPITimeout  = 60 * time.Second
	VisionOperationTimeout   = 50 * time.Second
	VisionBreakerOpenFor     = 45 * time.Second
	VisionSlowCallThreshold  = 20 * time.Second
	VisionMaxConsecFailures  = 5

	// Photo normalizer
	PhotoFetchTimeout      = 10 * time.Second
	PhotoMaxPerVenue       = 6
	PhotoHardMaxPerVenue   = 9
	PhotoMaxEdgePixels     = 1024
	PhotoJPEGQuality       = 80
	PhotoMaxPayloadBytes   = 8 << 20 // keep provider requests under their ~10MB cap
	PhotoMaxDownloadBytes  = 20 << 20

	// Batch scheduler
	BatchGroupSizeDefault = 3
	BatchStaggerDefault   = 1 * time.Second

	// Health
	HealthTimeoutDefault = 30 * time.Second

	// Config watcher
	ConfigWatcherIntervalDefault = 2 * time.Second

	// App shutdown
	GracefulShutdownTimeoutDefault = 10 * time.Second

	// Events store SQL operations
	EventsSQLTimeoutDefault = 5 * time.Second

	// Database
	DBReadTimeoutDefault  = 8 * time.Second
	DBWriteTimeoutDefault = 6 * time.Second

	// Monitoring
	MonitoringIntervalDefault = 5 * time.Second
)
