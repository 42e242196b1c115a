// Package main provides the entry point for the cannibalscan CLI.
//
// cannibalscan reports keyword cannibalization: several pages of one site
// ranking for the same query with near-duplicate content. The analysis
// itself runs on a backend; cannibalscan fetches it, filters and sorts the
// keyword groups, prints them and writes JSON, HTML, Markdown or DOCX
// exports. Every fetched analysis is kept in a local history database so
// it can be filtered again without another backend call.
//
// Usage:
//
//	cannibalscan analyze csv <keywords.csv>
//	cannibalscan analyze gsc --site https://www.example.com/
//	cannibalscan filter --file rapport.json --include chaussures
//	cannibalscan serve --id 3
//
// See --help for all available options.
package main

func main() {
	Execute()
}
