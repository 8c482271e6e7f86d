// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package xrone

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Defaults for the glasses' link-local network endpoints.
const (
	DefaultHost        = "169.254.2.1"
	DefaultControlPort = 52999
	DefaultStreamPort  = 52998

	linkLocalPrefix = "169.254."
)

// dial opens a TCP connection to host:port. When host is link-local,
// the dial is bound to the first local interface address that is also
// link-local, per the device's expectation that control traffic stays
// on its own point-to-point segment; otherwise the system picks
// whichever interface routes there.
func dial(host string, port int, timeout time.Duration) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: timeout}
	if strings.HasPrefix(host, linkLocalPrefix) {
		if local := firstLinkLocalAddr(); local != nil {
			dialer.LocalAddr = &net.TCPAddr{IP: local}
		}
	}
	return dialer.Dial("tcp", addr)
}

// firstLinkLocalAddr returns the first non-loopback interface address
// beginning with 169.254., or nil if none is found.
func firstLinkLocalAddr() net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			if strings.HasPrefix(ipNet.IP.String(), linkLocalPrefix) {
				return ipNet.IP
			}
		}
	}
	return nil
}
