// Package fetch is the HTTP edge shared by the scraping and download stages:
// a polite client with a browser user agent, a per-request delay, and failure
// classification into the services taxonomy (timeouts and 5xx are transient,
// 4xx permanent). It also carries the heuristics for listing pages that are
// really 404s served with a 200 status.
package fetch
