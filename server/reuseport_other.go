// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package server

import "syscall"

const reusePortSupported = false

func reusePort(network, address string, rawConn syscall.RawConn) error {
	return nil
}
