// Package main (cmd/monitor-client) inspects a monitor tree published by
// monitor-server.
//
// The client looks up the monitor under its well-known name, logs in and
// walks the remote tree through the stubs the server hands out.
//
// Example usage:
//
//	monitor-client --host=monitor.example.com --port=8443 \
//	    --tls-cert=client.pem --tls-key=client-key.pem --tls-ca=ca.pem \
//	    --username=admin --password=secret tree
//
//	monitor-client ... show --path='network/edge/uplink latency'
package main
