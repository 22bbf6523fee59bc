// Package plans maps subscription plan tags to their usage ceilings.
package plans

const (
	Free       = "free"
	Pro        = "pro"
	Enterprise = "enterprise"
)

const (
	mb int64 = 1024 * 1024
	gb int64 = 1024 * mb
)

// Limits are the per-plan ceilings: monthly stored bytes, monthly extraction
// calls, and requests per minute.
type Limits struct {
	StorageBytesPerMonth int64
	ExtractionsPerMonth  int
	RequestsPerMinute    int
}

var table = map[string]Limits{
	Free:       {StorageBytesPerMonth: 100 * mb, ExtractionsPerMonth: 10, RequestsPerMinute: 10},
	Pro:        {StorageBytesPerMonth: 5 * gb, ExtractionsPerMonth: 30, RequestsPerMinute: 60},
	Enterprise: {StorageBytesPerMonth: 50 * gb, ExtractionsPerMonth: 200, RequestsPerMinute: 180},
}

// Lookup returns the limits for a plan tag. Unknown tags fall back to the
// free plan rather than erroring, so a bad tag can never grant more quota.
func Lookup(plan string) Limits {
	if l, ok := table[plan]; ok {
		return l
	}
	return table[Free]
}

// Valid reports whether plan is a known tag.
func Valid(plan string) bool {
	_, ok := table[plan]
	return ok
}
