package gatehouse

import "sync/atomic"

// MetricID indexes one engine counter.
type MetricID uint16

const (
	// MetricExistsCheck counts email existence lookups.
	MetricExistsCheck MetricID = iota
	// MetricExistsRateLimited counts advisory limit hits on existence checks.
	MetricExistsRateLimited
	// MetricSignInSuccess counts sign-ins that issued a session token.
	MetricSignInSuccess
	// MetricSignInFailure counts rejected sign-ins.
	MetricSignInFailure
	// MetricSignInRateLimited counts sign-ins rejected by the limiter.
	MetricSignInRateLimited
	// MetricIdentityCreated counts implicit identity creations.
	MetricIdentityCreated
	// MetricSecondFactorRequired counts sign-ins answered with a
	// twofactorauth-scope token.
	MetricSecondFactorRequired
	// MetricLinkDispatched counts login/reset link dispatches.
	MetricLinkDispatched
	// MetricRefreshSuccess counts token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed token refreshes.
	MetricRefreshFailure
	// MetricSecondFactorSuccess counts successful 2FA verifications.
	MetricSecondFactorSuccess
	// MetricSecondFactorFailure counts failed 2FA verifications.
	MetricSecondFactorFailure
	// MetricSecondFactorRateLimited counts 2FA budget exhaustions.
	MetricSecondFactorRateLimited
	// MetricRecoveryCodesCleared counts all-or-nothing recovery resets.
	MetricRecoveryCodesCleared

	metricCount
)

// Metrics is the engine's in-process counter set.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{enabled: true}
}

// Inc bumps the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
