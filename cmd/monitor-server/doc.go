// Package main (cmd/monitor-server) publishes a monitor tree loaded from a
// YAML file.
//
// The tree is published on every --port through the process-wide instance
// cache; each port gets one mutual TLS endpoint carrying the registry and the
// published objects. An operations API (health, drain, published monitors,
// pprof) and a Prometheus endpoint run on separate local addresses.
//
// Example usage:
//
//	monitor-server --tree=./network.yaml \
//	    --port=8443 --port=9443 \
//	    --public-address=monitor.example.com \
//	    --tls-cert=server.pem --tls-key=server-key.pem --tls-ca=ca.pem
//
// Generate password hashes for the tree's users section with:
//
//	monitor-server hash-password 's3cret'
package main
