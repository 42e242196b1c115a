// Package filter narrows and orders keyword groups.
//
// Apply runs every group through the same sequence of checks: keyword
// inclusion, keyword exclusion, URL click/impression thresholds, minimum URL
// count and minimum pair similarity. Groups that survive carry only the URLs
// and pairs that passed, then the list is sorted with a stable sort.
//
// Apply never modifies its input. Callers that want the narrowing to stick
// (see package session) store the returned groups in place of the old ones.
package filter
