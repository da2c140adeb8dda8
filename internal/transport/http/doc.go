// Package http implements the HTTP handlers of the lisstat API. Handlers are
// thin: they parse and validate requests, call the extraction service and
// render the result or an RFC 7807 problem.
//
// # Routes
//
//	GET    /health, /health/ready, /health/live, /version
//	POST   /reports                                       upload a report (raw body or multipart "file")
//	GET    /reports                                       list stored reports
//	GET    /reports/{id}                                  report descriptor
//	DELETE /reports/{id}
//	GET    /reports/{id}/variables                        distribution captions
//	GET    /reports/{id}/shots                            peak shot events
//	GET    /reports/{id}/switching-times
//	GET    /reports/{id}/sections                         report outline
//	GET    /reports/{id}/tables/voltage/{node}            ?summary=bool&format=json|csv
//	GET    /reports/{id}/tables/voltage/{node}/chart.png  ?summary=bool
//	GET    /reports/{id}/tables/current/{from}/{to}       ?summary=bool&format=json|csv
//	GET    /reports/{id}/tables/current/{from}/{to}/chart.png
//	POST   /reports/{id}/tables                           batch of table requests
//	POST   /reports/{id}/workbook                         batch as an xlsx download
//	GET    /reports/{id}/stream                           websocket batch with per-table progress
//
// Error responses are produced by errors.ErrorHandler, so every failure has
// the same problem+json shape and carries the request's trace ID.
package http
