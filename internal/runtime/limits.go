package runtime

import "fbench/internal/domain/bench"

// NormalizeLimits clamps negative limits to zero.
func NormalizeLimits(l bench.Limits) bench.Limits {
	if l.TimeLimit < 0 {
		l.TimeLimit = 0
	}
	if l.MemoryLimitBytes < 0 {
		l.MemoryLimitBytes = 0
	}
	return l
}

// EffectiveLimits overlays the positive fields of request onto defaults.
func EffectiveLimits(defaults, request bench.Limits) bench.Limits {
	effective := NormalizeLimits(defaults)
	overrides := NormalizeLimits(request)

	if overrides.TimeLimit > 0 {
		effective.TimeLimit = overrides.TimeLimit
	}
	if overrides.MemoryLimitBytes > 0 {
		effective.MemoryLimitBytes = overrides.MemoryLimitBytes
	}

	return effective
}
