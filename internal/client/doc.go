// Package client talks to the cannibalization analysis backend.
//
// The backend owns every heavy step (CSV parsing, Search Console access,
// page scraping and similarity scoring). This package only builds the
// requests, decodes the analyses it returns and turns non-2xx responses
// into *APIError values.
package client
