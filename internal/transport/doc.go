// Package transport provides the duplex byte-stream connections a port
// engine reads packets from and writes commands to: RS-485/USB-serial via
// go.bug.st/serial, and a raw TCP fallback for serial-over-IP gateways.
// Dialing mirrors the source's dual-scheme (unix/tcp) connector, adapted to
// serial/tcp for this protocol family.
package transport
