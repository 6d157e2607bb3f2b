//go:build !windows

package main

import (
	"github.com/go-kit/log"

	"github.com/efficientgo/core/errors"
)

func newScanner(_ log.Logger) (*scanner, error) {
	return nil, errors.New("usb topology scanning requires windows")
}
