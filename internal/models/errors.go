package models

import "errors"

// ErrEmptyInput is returned when propagation or simulation is given no data to work on
var ErrEmptyInput = errors.New("empty input")
