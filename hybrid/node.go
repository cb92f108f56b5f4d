// SPDX-License-Identifier: MIT
//
// File: node.go
// Role: Tagged union over the three conditional kinds a hybrid Bayes net
// stores: purely discrete, purely Gaussian, or a mode-indexed mixture.

package hybrid

import (
	"strings"

	"github.com/DanMcGann/gtsam/core"
	"github.com/DanMcGann/gtsam/discrete"
	"github.com/DanMcGann/gtsam/linear"
)

// Category names the kind of conditional a Node wraps.
type Category int

const (
	// CategoryContinuous marks a Gaussian conditional with no discrete keys.
	CategoryContinuous Category = iota
	// CategoryDiscrete marks a discrete conditional with no continuous keys.
	CategoryDiscrete
	// CategoryHybrid marks a mixture, continuous frontals switched by modes.
	CategoryHybrid
)

// String returns the category label used in printed output.
func (c Category) String() string {
	switch c {
	case CategoryContinuous:
		return "Continuous"
	case CategoryDiscrete:
		return "Discrete"
	default:
		return "Hybrid"
	}
}

// formatHybridKeys renders "[x0 x1; m0]": continuous keys, then discrete
// keys, the semicolon only when both groups are present.
func formatHybridKeys(cont []core.Key, disc core.DiscreteKeys, kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(core.FormatKeys(cont, kf))
	if len(cont) > 0 && len(disc) > 0 {
		sb.WriteString("; ")
	}
	sb.WriteString(core.FormatKeys(disc.Keys(), kf))
	sb.WriteString("]")

	return sb.String()
}

// Node is one conditional of a hybrid Bayes net. Exactly one of the three
// payloads is set; Category tells which.
type Node struct {
	category Category
	dc       *discrete.Conditional
	gc       *linear.Conditional
	mx       *Mixture
}

// NewDiscreteNode wraps a discrete conditional.
func NewDiscreteNode(c *discrete.Conditional) (*Node, error) {
	if c == nil {
		return nil, ErrIllFormedNode
	}

	return &Node{category: CategoryDiscrete, dc: c}, nil
}

// NewGaussianNode wraps a Gaussian conditional.
func NewGaussianNode(c *linear.Conditional) (*Node, error) {
	if c == nil {
		return nil, ErrIllFormedNode
	}

	return &Node{category: CategoryContinuous, gc: c}, nil
}

// NewMixtureNode wraps a conditional mixture.
func NewMixtureNode(m *Mixture) (*Node, error) {
	if m == nil {
		return nil, ErrIllFormedNode
	}

	return &Node{category: CategoryHybrid, mx: m}, nil
}

// Category reports which conditional kind the node wraps.
func (n *Node) Category() Category { return n.category }

// ContinuousKeys returns every continuous key the node touches, frontals
// before parents. Empty for a discrete node.
func (n *Node) ContinuousKeys() []core.Key {
	switch n.category {
	case CategoryContinuous:
		return append(n.gc.Frontals(), n.gc.Parents()...)
	case CategoryHybrid:
		return append(n.mx.Frontals(), n.mx.Parents()...)
	default:
		return nil
	}
}

// DiscreteKeys returns every discrete key the node touches, frontals before
// parents. Empty for a Gaussian node.
func (n *Node) DiscreteKeys() core.DiscreteKeys {
	switch n.category {
	case CategoryDiscrete:
		return append(n.dc.Frontals(), n.dc.Parents()...)
	case CategoryHybrid:
		return n.mx.Modes()
	default:
		return nil
	}
}

// FrontalKeys returns the keys the node conditions, continuous or discrete.
func (n *Node) FrontalKeys() []core.Key {
	switch n.category {
	case CategoryDiscrete:
		return n.dc.Frontals().Keys()
	case CategoryContinuous:
		return n.gc.Frontals()
	default:
		return n.mx.Frontals()
	}
}

// ParentKeys returns the keys the node conditions on. Mixture parents
// include the mode keys.
func (n *Node) ParentKeys() []core.Key {
	switch n.category {
	case CategoryDiscrete:
		return n.dc.Parents().Keys()
	case CategoryContinuous:
		return n.gc.Parents()
	default:
		return append(n.mx.Parents(), n.mx.Modes().Keys()...)
	}
}

// AsDiscrete unwraps the discrete conditional, ErrWrongVariant otherwise.
func (n *Node) AsDiscrete() (*discrete.Conditional, error) {
	if n.category != CategoryDiscrete {
		return nil, ErrWrongVariant
	}

	return n.dc, nil
}

// AsGaussian unwraps the Gaussian conditional, ErrWrongVariant otherwise.
func (n *Node) AsGaussian() (*linear.Conditional, error) {
	if n.category != CategoryContinuous {
		return nil, ErrWrongVariant
	}

	return n.gc, nil
}

// AsMixture unwraps the mixture, ErrWrongVariant otherwise.
func (n *Node) AsMixture() (*Mixture, error) {
	if n.category != CategoryHybrid {
		return nil, ErrWrongVariant
	}

	return n.mx, nil
}

// Evaluate returns the conditional density at a full assignment.
func (n *Node) Evaluate(v core.HybridValues) (float64, error) {
	switch n.category {
	case CategoryDiscrete:
		return n.dc.Evaluate(v.Discrete)
	case CategoryContinuous:
		return n.gc.Evaluate(v.Continuous)
	default:
		return n.mx.Evaluate(v)
	}
}

// LogProbability returns the log conditional density at a full assignment.
func (n *Node) LogProbability(v core.HybridValues) (float64, error) {
	switch n.category {
	case CategoryDiscrete:
		return n.dc.LogProbability(v.Discrete)
	case CategoryContinuous:
		return n.gc.LogProbability(v.Continuous)
	default:
		return n.mx.LogProbability(v)
	}
}

// Error returns the node's energy at a full assignment: the negative log
// probability for discrete nodes, the unnormalized quadratic for Gaussian
// nodes, and the offset leaf error for mixtures.
func (n *Node) Error(v core.HybridValues) (float64, error) {
	switch n.category {
	case CategoryDiscrete:
		return n.dc.Error(v.Discrete)
	case CategoryContinuous:
		return n.gc.Error(v.Continuous)
	default:
		return n.mx.Error(v)
	}
}

// Equal reports whether both nodes wrap the same kind with equal payloads
// within tol.
func (n *Node) Equal(other *Node, tol float64) bool {
	if other == nil || n.category != other.category {
		return false
	}
	switch n.category {
	case CategoryDiscrete:
		return n.dc.Equal(other.dc, tol)
	case CategoryContinuous:
		return n.gc.Equal(other.gc, tol)
	default:
		return n.mx.Equal(other.mx, tol)
	}
}

// String renders the category header with the node's full key scope,
// followed by the wrapped conditional.
func (n *Node) String(kf core.KeyFormatter) string {
	var sb strings.Builder
	sb.WriteString(n.category.String())
	sb.WriteString(" ")
	sb.WriteString(formatHybridKeys(n.ContinuousKeys(), n.DiscreteKeys(), kf))
	sb.WriteString("\n")
	switch n.category {
	case CategoryDiscrete:
		sb.WriteString(n.dc.String(kf))
	case CategoryContinuous:
		sb.WriteString(n.gc.StringWith(kf))
	default:
		sb.WriteString(n.mx.String(kf))
	}

	return sb.String()
}
