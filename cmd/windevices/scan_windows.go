//go:build windows

package main

import (
	"github.com/go-kit/log"

	"github.com/seclens/windevices/inventory"
)

func newScanner(logger log.Logger) (*scanner, error) {
	return &scanner{mgr: inventory.New(logger)}, nil
}
