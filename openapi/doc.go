// Package openapi builds OpenAPI 3 documents from the routes registered with the
// server package.
//
// Each route's request type is flattened by the expander into query or form
// parameters. Fields tagged param or header become path and header parameters,
// and request types that are or carry paging.Pageable or paging.Sorter gain the
// page, size and sort parameters. The docs configuration adds the info block,
// an optional OAuth2 security scheme and an optional referer header component.
//
//	builder := openapi.NewBuilder(cfg, log)
//	doc, err := builder.Build(ctx, registry.Routes())
//	if err != nil {
//		return err
//	}
//	body, err := doc.YAML()
package openapi
