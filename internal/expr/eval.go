package expr

import (
	"strconv"

	"github.com/jacoelho/schematron/internal/xmldoc"
	"github.com/jacoelho/schematron/internal/xpath"
)

// Evaluate computes the boolean value of the expression with node as the
// context node. sel binds path operands to the subject document.
func (c *Compiled) Evaluate(sel *xpath.Selector, node *xmldoc.Element) bool {
	return evalNode(c.root, sel, node)
}

func evalNode(n node, sel *xpath.Selector, ctx *xmldoc.Element) bool {
	switch v := n.(type) {
	case orNode:
		for _, operand := range v.operands {
			if evalNode(operand, sel, ctx) {
				return true
			}
		}
		return false
	case andNode:
		for _, operand := range v.operands {
			if !evalNode(operand, sel, ctx) {
				return false
			}
		}
		return true
	case notNode:
		return !evalNode(v.operand, sel, ctx)
	case existsNode:
		return sel.Exists(v.path, ctx)
	case compareNode:
		return evalCompare(v, sel, ctx)
	}
	return false
}

// evalCompare follows the node-set comparison rule: a comparison against a
// node-set is true when any selected value satisfies it.
func evalCompare(cmp compareNode, sel *xpath.Selector, ctx *xmldoc.Element) bool {
	lhs := operandValues(cmp.lhs, sel, ctx)
	rhs := operandValues(cmp.rhs, sel, ctx)
	for _, l := range lhs {
		for _, r := range rhs {
			if valuesEqual(l, r) == (cmp.op == opEqual) {
				return true
			}
		}
	}
	return false
}

func operandValues(op operand, sel *xpath.Selector, ctx *xmldoc.Element) []string {
	switch op.kind {
	case operandString, operandNumber:
		return []string{op.str}
	case operandPath:
		return sel.Values(op.path, ctx)
	}
	return nil
}

// valuesEqual compares numerically when both sides parse as numbers, so
// '034' = '34' holds for numeric attributes; otherwise byte equality.
func valuesEqual(a, b string) bool {
	if a == b {
		return true
	}
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return na == nb
	}
	return false
}
