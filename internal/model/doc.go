// Package model defines the data structures shared by cannibalscan.
//
// This package contains the following main types:
//   - AnalysisReport: The analysis returned by the backend for one run
//   - KeywordGroup: One keyword and the URLs competing for it
//   - URLEntry: A URL with its Search Console metrics
//   - SimilarityPair: The content similarity between two URLs of a group
//   - Band: The risk band derived from a similarity score
//
// The models mirror the backend's JSON so a report can be stored, exported
// and re-imported without loss.
package model
