package api

type Limits struct {
	// RateLimit is the number of requests per second the server accepts, zero disables limiting.
	RateLimit int
	// MaxBodyBytes caps the size of a JSON request body.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 1 << 20

func (lim Limits) maxBodyBytes() int64 {
	if lim.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return lim.MaxBodyBytes
}
