// Package rpc implements Warden's binary interface for backend services:
// a length-prefixed framing over TCP with msgpack payloads. It exists for
// collaborating services that validate tokens and resolve roles at high
// call rates without paying the HTTP/JSON overhead.
package rpc
