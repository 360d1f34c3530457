//go:build nogpu

package main

import (
	"errors"

	"github.com/gogpu/life"
)

func newGPUBackend(options, life.Config, *life.Grid, []life.DriverOption) (*backend, error) {
	return nil, errors.New("built with the nogpu tag")
}
