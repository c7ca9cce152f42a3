// Package gateway aggregates the OpenAPI documents of the services behind an API
// gateway.
//
// Each configured route names a downstream service. The gateway proxies
// /<service>/v3/api-docs to the service, prefixes the document paths with the
// gateway prefix and points the document servers at the gateway. It also lists the
// documents for swagger-ui and forwards <prefix>/swagger-ui/** to the UI assets
// under /webjars.
package gateway
