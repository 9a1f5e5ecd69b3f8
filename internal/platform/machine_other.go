//go:build !linux && !darwin

package platform

import "runtime"

func machineArch() (string, error) {
	return runtime.GOARCH, nil
}
