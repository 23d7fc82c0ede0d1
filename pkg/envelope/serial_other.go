//go:build !linux

package envelope

import (
	"context"
	"errors"
	"io"
)

func openSerial(context.Context, string, int) (io.ReadWriteCloser, error) {
	return nil, errors.New("serial key devices are only supported on linux")
}
