// Package hybrid joins discrete and Gaussian inference: distributions whose
// continuous model switches with a set of discrete mode variables.
//
// A Mixture attaches one linear.Conditional per discrete assignment, all
// sharing the same frontal and parent variables; a MixtureFactor does the
// same with Jacobian factors, each leaf carrying a scalar log-normalizer so
// modes with different noise scales compare on a proper probability scale.
// Node wraps discrete, Gaussian and mixture conditionals behind one tagged
// union, and BayesNet chains Nodes in ancestral order with the query suite:
// Choose, Evaluate, Optimize (two-phase MPE), Sample, Prune and
// ToFactorGraph. FactorGraph plus EliminateSequential close the loop, turning
// measurement factor graphs back into posterior nets.
//
// All containers are immutable after construction; Prune returns a new net.
// Queries over one net may run concurrently.
//
// Complexity: discrete sweeps cost O(Π mode cardinalities) per mixture
// touched; continuous solves are dense per leaf. Prune exists to keep the
// leaf count bounded before elimination multiplies it.
package hybrid
