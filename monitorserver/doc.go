/*
Package monitorserver publishes a local monitor tree for remote clients.

A Monitor owns one network identity: a local monitor, the public and listen
addresses, and a port. It is built and cached by a Cache so that a given
configuration is published exactly once per process:

	cache, err := monitorserver.NewCache(&monitorserver.Config{
		Substrate: runtime,
		Identity:  identity,
		Log:       log,
	})
	server, err := cache.GetInstance(tree, "monitor.example.com", "", 8443)

Construction captures the transport settings of the Monitor (advertised
hostname, random object ids, no code loading, no insecure fallback), builds
its TLS socket factories, and binds the Monitor under WellKnownName in the
registry of its port. Rebinding replaces any previous Monitor published there.

The tree is published lazily. Login returns the wrapper of the local root
node, and every Children call wraps the local children. Each local node is
wrapped, and exported without a name, exactly once per Monitor; clients reach
it only through the methods of objects they already hold.

Wrappers are selected by the declared NodeKind. Typed table-multi-result
nodes must be handed out in their erased form, see
interfaces.EraseTableMultiResultNode.

Errors match ErrConfiguration (bad port, address, monitor or node) or
ErrTransport (TLS material, listener, registry or export failures). A failed
construction is never cached.
*/
package monitorserver
