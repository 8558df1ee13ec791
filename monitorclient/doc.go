// Package monitorclient reads a monitor tree published by monitorserver.
//
// Dial resolves the monitor bound under monitorserver.WellKnownName, Login
// returns the remote root, and Walk visits the tree depth-first. Nodes are
// proxies: every query is a remote invocation through an Invoker.
package monitorclient
