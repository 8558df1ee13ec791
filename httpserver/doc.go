/*
Package httpserver implements the operations API of a monitor publisher.

The publisher itself talks to clients over the TLS endpoints of package
remote. This server is separate and meant for operators and orchestration:

  - GET /api/monitors - published monitors with their ports, addresses and stubs
  - GET /api/registries - names bound in each per-port registry
  - GET /livez - Liveness check
  - GET /readyz - Readiness check, failing while draining or when an endpoint is down
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/pprof/* - when EnablePprof is set

Prometheus metrics are served on a separate address by metrics.MetricsServer.
*/
package httpserver
