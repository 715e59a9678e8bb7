// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize bounds the size of a CUE document (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	parseOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures ParseAndDecode.
	Option func(*parseOptions)
)

func defaultOptions() parseOptions {
	return parseOptions{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option {
	return func(o *parseOptions) { o.maxFileSize = size }
}

// WithConcrete controls whether every value must be concrete after
// unification. It defaults to true; config files with optional fields pass
// false.
func WithConcrete(concrete bool) Option {
	return func(o *parseOptions) { o.concrete = concrete }
}

// WithFilename names the document in error messages.
func WithFilename(name string) Option {
	return func(o *parseOptions) { o.filename = name }
}
