package config

import "errors"

var (
	// ErrIO wraps a filesystem failure reading or writing the config file.
	ErrIO = errors.New("config: io error")
	// ErrDecodeFailure is returned when the config file is not valid YAML.
	ErrDecodeFailure = errors.New("config: decode failure")
	// ErrEncodeFailure is returned when the config cannot be marshaled.
	ErrEncodeFailure = errors.New("config: encode failure")
)
