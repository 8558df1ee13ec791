// Package cryptoutils provides the TLS side of the monitor transport.
//
// TLS material (certificate, key and CA bundle, or a generated self-signed
// certificate) is loaded once into a TLSIdentity. Every publisher then builds
// its own matched pair of socket factories from that identity:
//
//   - TLSServerSocketFactory listens with TLS 1.3, optionally restricted to
//     one interface, and requires client certificates when a CA is configured
//   - TLSClientSocketFactory dials with TLS 1.3 and presents the identity's
//     certificate
//
// Two factories compare equal when they share the identity and the bind
// address, which lets one port's endpoint be reused by every publisher
// configured the same way.
package cryptoutils
