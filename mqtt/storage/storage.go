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

// Package storage defines the host-facing persistence interface for
// session state the Connection keeps in memory only. The engine itself
// never reads or writes a file; a host that wants durable sessions across
// process restarts implements Store against its own backing store and
// attaches it with Connection.SetSessionStore, which mirrors outgoing
// inflight PublishRecords into it as they are created and acknowledged.
// Incoming QoS2 identifiers are not mirrored.
package storage

import "errors"

// ErrDuplicateEntry is returned by Store when an entry already exists
// under the given identifier.
var ErrDuplicateEntry = errors.New("storage: entry already exists")

// ErrNoEntry is returned by Get/Drop when no entry exists under the
// given identifier.
var ErrNoEntry = errors.New("storage: no such entry")

// Store persists arbitrary session-state entries (PublishRecord values,
// primarily) keyed by packet identifier. Implementations need not be
// durable across a call boundary; memory.Storage is the in-process
// reference implementation.
type Store interface {
	// Store records packet under identifier. Returns ErrDuplicateEntry if
	// an entry is already stored under that identifier.
	Store(identifier uint16, packet any) error

	// Get returns the entry stored under identifier, or ErrNoEntry.
	Get(identifier uint16) (any, error)

	// Drop removes the entry stored under identifier, or ErrNoEntry if
	// none exists.
	Drop(identifier uint16) error

	// All returns every stored entry in insertion order, for host-side
	// enumeration (e.g. persisting inflight state before shutdown).
	All() []any
}
