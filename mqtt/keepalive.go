/*
 * MIT License
 *
 * Copyright (c) 2022-2022 waj334
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package mqtt

// keepAliveConfig holds the two independently configurable halves of
// keep-alive: how often we send PINGREQ, and how long we wait for a
// PINGRESP before declaring the peer dead. Either half can be disabled.
type keepAliveConfig struct {
	// sendIntervalMS is the effective PINGREQ cadence in milliseconds. 0
	// disables PINGREQ emission entirely.
	sendIntervalMS uint32
	// sendIntervalOverride, when non-nil, takes priority over any value
	// derived from CONNECT/CONNACK per the priority order in §3: host
	// override > v5 ServerKeepAlive > sent CONNECT KeepAlive.
	sendIntervalOverride *uint32

	// pingrespTimeoutMS is how long to wait for PINGRESP after a PINGREQ
	// before treating the connection as dead. 0 disables the timeout.
	pingrespTimeoutMS uint32
}

func newKeepAliveConfig() *keepAliveConfig {
	return &keepAliveConfig{pingrespTimeoutMS: 0}
}

// setSendIntervalOverride installs (or clears, with nil) a host override
// for the PINGREQ send interval.
func (k *keepAliveConfig) setSendIntervalOverride(ms *uint32) {
	k.sendIntervalOverride = ms
}

// setPingrespTimeout installs the PINGRESP wait timeout; 0 disables it.
func (k *keepAliveConfig) setPingrespTimeout(ms uint32) {
	k.pingrespTimeoutMS = ms
}

// resolveSendInterval derives the effective PINGREQ send interval from
// the priority order: explicit host override, then the v5
// ServerKeepAlive property from a successful CONNACK (serverKeepAlive,
// serverKeepAliveSet), then the KeepAlive field the client itself sent
// in CONNECT (sentKeepAliveSeconds). The result is stored in
// sendIntervalMS and also returned.
func (k *keepAliveConfig) resolveSendInterval(sentKeepAliveSeconds uint16, serverKeepAliveSeconds uint16, serverKeepAliveSet bool) uint32 {
	switch {
	case k.sendIntervalOverride != nil:
		k.sendIntervalMS = *k.sendIntervalOverride
	case serverKeepAliveSet:
		k.sendIntervalMS = uint32(serverKeepAliveSeconds) * 1000
	default:
		k.sendIntervalMS = uint32(sentKeepAliveSeconds) * 1000
	}
	return k.sendIntervalMS
}
