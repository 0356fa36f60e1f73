// Package relay implements the CORS relay that lets browser-hosted git clients reach a fixed upstream host.
//
// Requests under the configured prefix are forwarded to the upstream with a git
// user agent, a permissive accept header, and the upload-pack content type where
// required. Responses gain Access-Control-Allow-Origin: * and preflight requests
// are answered directly.
package relay
