package settings

import "log/slog"

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system settings files are read from.
func WithFS(fs FileSystem) Option {
	return func(l *Loader) {
		if fs != nil {
			l.fs = fs
		}
	}
}

// WithSection restricts each file to its unnamed section plus [name].
// Files lacking the section fail with ErrSectionNotFound.
func WithSection(name string) Option {
	return func(l *Loader) {
		l.section = name
	}
}

// WithDelimiters sets the characters that separate a key from its value.
// Use "=" to allow typed keys such as "port:int = 8080".
func WithDelimiters(chars string) Option {
	return func(l *Loader) {
		if chars != "" {
			l.delimiters = chars
		}
	}
}

// WithMetaSettings injects __file__, __base__, __bases__ and (when the file
// doesn't set it) env into every loaded file.
func WithMetaSettings() Option {
	return func(l *Loader) {
		l.meta = true
	}
}

// WithMaxInterpolationDepth bounds ${key} nesting.
func WithMaxInterpolationDepth(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
