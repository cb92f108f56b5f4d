// Package gtsam is your in-memory toolkit for hybrid probabilistic
// inference: joint models over continuous Gaussian variables and discrete
// decision variables, from factor graphs to solved Bayes nets.
//
// 🚀 What is gtsam/hybrid?
//
//	A compact, deterministic inference library that brings together:
//		• Core primitives: symbol keys, vector/discrete/hybrid value maps
//		• Decision trees: dense mode-indexed tables with algebraic combine
//		• Linear layer: Jacobian factors, Gaussian conditionals, QR elimination
//		• Discrete layer: factor tables, CPTs, sum-product elimination
//		• Hybrid layer: Gaussian mixtures, hybrid Bayes nets & factor graphs
//		• Queries: MPE optimization, ancestral sampling, branch pruning
//
// ✨ Why choose gtsam?
//
//   - Small API surface – accept values, return conditionals, wrap errors
//   - Deterministic by construction – canonical orderings, seedable sampling
//   - Numerically careful – whitened QR, log-space mode weights
//   - Composable – every layer is usable on its own
//
// Under the hood, everything is organized under five subpackages:
//
//	core/     — keys, discrete key sets & the three value-map types
//	dtree/    — generic decision trees keyed by discrete assignments
//	linear/   — Gaussian factors, conditionals & sequential elimination
//	discrete/ — discrete factors, conditionals & sum-product elimination
//	hybrid/   — mixtures, hybrid Bayes nets, hybrid factor graphs & queries
//
// Quick ASCII example:
//
//	    x0 ──▶ x1
//	          ▲
//	          m0
//
//	a continuous chain whose transition is switched by a discrete mode.
//
// Dive into examples/ for full scenarios: slip detection on a robot
// trajectory and mode pruning in a switching target tracker.
//
//	go get github.com/DanMcGann/gtsam
package gtsam
