// Package httpapi serves one document's tiddler store over the TiddlyWeb
// style sync protocol used by the browser client.
//
// Routes:
//
//	GET    /status                            capability check
//	GET    /recipes/default/tiddlers.json     skinny listing
//	GET    /recipes/default/tiddlers/{title}  full record, 404 when absent
//	PUT    /recipes/default/tiddlers/{title}  store record, 204 + ETag
//	DELETE /bags/default/tiddlers/{title}     ensure absent, always 204
//	GET    /                                  the document snapshot
//
// Titles travel percent-encoded; the router matches the encoded path so a
// title may contain "/" (sent as %2F).
package httpapi
