// Package learning turns human review decisions into a style bias for future
// drafts.
//
// Outcomes are keyed by (run, contact): recording the same pair twice replaces
// the earlier record. Score matches history on an exact categorical key
// (industry, seniority bucket, campaign goal) and applies Laplace smoothing:
//
//	weight(style) = (successes(style) + 1) / (total(style) + K)
//
// Below MinSamples matching records every style gets the same weight, 1/K.
package learning
