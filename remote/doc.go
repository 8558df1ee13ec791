/*
Package remote implements the remote invocation substrate used to publish a
monitor tree.

Every port gets one TLS endpoint, opened through a server socket factory on
first use. The endpoint serves the port's registry and every object exported
on that port:

  - GET /registry - names bound in the port's registry
  - GET /registry/{name} - stub bound to name
  - POST /objects/{object_id}/{method} - invoke method with a JSON argument body

Invocation responses are JSON objects with a result field on success and
error/code fields on failure. Results that are interfaces.Remote values, or
slices of them, travel as stubs and must already be exported: an object is
reachable only through a stub somebody handed out.

RegistryManager creates at most one registry per port. Runtime is the network
implementation of interfaces.Substrate, MemorySubstrate an in-process one with
the same encoding, and MockSubstrate a testify mock. Client looks names up and
invokes stubs through a client socket factory.
*/
package remote
