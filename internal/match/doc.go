// Package match contains the pure scoring engine and the qualification
// filter that turns raw postings into a ranked apply queue.
//
// Scoring is heuristic (keyword/substring based), deterministic, and free of
// side effects so it stays trivially testable. The skill extractor and
// experience-level classifier are pluggable strategies; the defaults are the
// substring heuristics.
package match
