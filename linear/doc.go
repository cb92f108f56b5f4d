// Package linear provides the linear-Gaussian primitives the hybrid layer
// composes: diagonal noise models, Jacobian factors, linear-Gaussian
// conditionals, ancestral-ordered Gaussian Bayes nets, and dense sequential
// elimination.
//
// A Conditional models p(x_F | x_P) through the triangular system
//
//	R·x_F + Σ_j S_j·x_Pj = d + ε,  ε ~ N(0, diag(σ²)),
//
// so solving for the frontal given parent values is one back-substitution,
// and the density normalizer follows from |det R| and the sigmas. A
// JacobianFactor is the unconditioned counterpart: blocks A_j, right-hand
// side b, and error ½‖Σ A_j x_j − b‖² whitened by an optional noise model.
//
// Elimination stacks the whitened blocks of all factors touching one
// variable, runs a QR factorization (gonum mat.QR), reads the conditional
// off the top rows and returns the remaining rows as a new factor over the
// separator. EliminateSequential repeats this per variable and assembles the
// conditionals into a BayesNet in ancestral order: parents always precede
// their dependents, and Push enforces that invariant at append time.
//
// All numerics are delegated to gonum (mat, floats, stat/distuv); this
// package contains no hand-rolled decompositions.
//
// Complexity, per eliminated variable with stacked size m×n:
//
//   - QR factorization: O(m·n²)
//   - Conditional solve: O(n²)
package linear
