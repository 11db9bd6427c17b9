// Package http exposes the push controller over a JSON API.
//
// Routes (under /api/v1):
//
//	POST   /owners/:owner/connections              register {connection, target, filter}
//	GET    /owners/:owner/connections?available=1  list live connection names
//	DELETE /owners/:owner/connections?connection=  unregister one connection
//	POST   /owners/:owner/connections/take?connection=  collect buffered arrivals
//	DELETE /owners/:owner                          remove every registration of an owner
//	GET    /owners                                 owners with live registrations
//	GET    /connections/lookup?connection=         record holding a connection
//	GET    /apps                                   launched applications
//	GET    /stats                                  aggregated counters
//
// Restricted schemes require the X-Push-Grant header to match the configured token.
package http
