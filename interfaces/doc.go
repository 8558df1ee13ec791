// Package interfaces defines the contracts between the monitor publisher and
// its collaborators, without implementation details.
//
// # Monitor tree
//
// The monitor tree is supplied by the monitoring logic and is read-only to
// this module:
//
//   - Monitor: the entry point, reached through Login
//   - Node, RootNode: inner nodes enumerating their children
//   - SingleResultNode, TableResultNode: leaves with the latest result
//   - TableMultiResultNode[R]: leaves with a history of results of type R
//
// Every node declares a NodeKind. The set of kinds is closed; consumers
// dispatch on Kind rather than on the dynamic type of the node.
//
// # Remote invocation substrate
//
//   - ClientSocketFactory / ServerSocketFactory: matched secure dial/listen pair
//   - Remote: an exportable object
//   - Stub: the network handle of an exported object
//   - Registry: per-port name to stub table
//   - Substrate: creates registries and exports objects
//   - Settings: per-publisher transport settings
package interfaces
