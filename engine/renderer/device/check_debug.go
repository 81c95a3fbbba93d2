//go:build !release

package device

// ChecksEnabled reports whether device calls are followed by error checks.
const ChecksEnabled = true
