// Package http serves hydrated documents over HTTP.
//
// Routes:
//   - GET /healthz reports liveness.
//   - GET /pages/{page} hydrates <page>.html from the configured page directory.
//     Query parameters seed the filters of every list in the page.
//   - POST /hydrate hydrates the posted HTML document.
//
// Failures are returned as JSON objects of the form {"error": "...", "code": "..."}.
package http
