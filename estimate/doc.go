// Package estimate turns tag containment into coverage-adjusted ANI.
//
// The naive estimate treats the containment fraction — the share of a
// genome's tags observed in a sample — as the per-tag match
// probability and takes its TagLen-th root. At low sequencing depth
// that underestimates identity badly: tags are missing because they
// were never sampled, not because the genome diverged. The package
// models per-tag multiplicities as zero-inflated Poisson draws,
// estimates the coverage rate λ from the nonzero part of the
// spectrum, and rescales the containment fraction by the expected
// observed mass 1−e^(−λ) before taking the root.
//
// Deep samples (median multiplicity above two) skip the correction:
// the truncation loss is negligible and the naive estimate stands.
// Repeat-driven multiplicity outliers are capped by a Poisson tail
// test before any statistic is computed, and a seeded bootstrap over
// the coverage vector yields percentile intervals for both λ and the
// adjusted ANI.
package estimate
