package config

import (
	"errors"
)

var (
	// ErrInvalidConfig wraps every validation failure, including a bad
	// column letter or a watch request without a workbook source.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading GINCANA_CONFIG or the
	// GINCANA_ environment layer.
	ErrLoadConfig = errors.New("load config failed")
)
