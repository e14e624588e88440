// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fragment

import (
	"fmt"
	"go/ast"
	"strings"
)

// Equivalent reports whether two fragment texts parse to structurally
// identical declarations. Layout, comments, and positions are ignored;
// identifiers, literals, operators, and tree shape must match.
func Equivalent(a, b string) (bool, error) {
	declA, _, err := Reparse(a)
	if err != nil {
		return false, err
	}
	declB, _, err := Reparse(b)
	if err != nil {
		return false, err
	}
	return Shape(declA) == Shape(declB), nil
}

// Shape renders a position-free description of a syntax tree. Two
// nodes with equal shapes are the same program text up to layout and
// comments.
func Shape(node ast.Node) string {
	var builder strings.Builder
	ast.Inspect(node, func(n ast.Node) bool {
		if n == nil {
			builder.WriteString(")")
			return false
		}
		switch n.(type) {
		case *ast.CommentGroup, *ast.Comment:
			return false
		}
		builder.WriteString("(")
		builder.WriteString(nodeLabel(n))
		return true
	})
	return builder.String()
}

func nodeLabel(n ast.Node) string {
	switch x := n.(type) {
	case *ast.Ident:
		return "Ident " + x.Name
	case *ast.BasicLit:
		return "Lit " + x.Kind.String() + " " + x.Value
	case *ast.BinaryExpr:
		return "Binary " + x.Op.String()
	case *ast.UnaryExpr:
		return "Unary " + x.Op.String()
	case *ast.AssignStmt:
		return "Assign " + x.Tok.String()
	case *ast.IncDecStmt:
		return "IncDec " + x.Tok.String()
	case *ast.BranchStmt:
		return "Branch " + x.Tok.String()
	case *ast.RangeStmt:
		return "Range " + x.Tok.String()
	case *ast.GenDecl:
		return "Gen " + x.Tok.String()
	// Assign and Ellipsis are positions, not children, so they have to
	// show up in the label.
	case *ast.TypeSpec:
		if x.Assign.IsValid() {
			return "TypeSpec alias"
		}
		return "TypeSpec"
	case *ast.CallExpr:
		if x.Ellipsis.IsValid() {
			return "Call spread"
		}
		return "Call"
	case *ast.ChanType:
		if x.Dir == ast.SEND {
			return "Chan send"
		}
		if x.Dir == ast.RECV {
			return "Chan recv"
		}
		return "Chan"
	case *ast.Ellipsis:
		return "Ellipsis"
	case *ast.StarExpr:
		return "Star"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
	}
}
