package driver

import (
	"fmt"
	"os"
	"strconv"

	"github.com/x07dev/x07/internal/x07ast"
)

// Budgets are the compile-time resource limits (spec §4.C8, env vars in
// spec §6): locals, AST nodes, and emitted C bytes. Reads happen exactly
// once, at driver construction (design note: "Configuration ... is passed
// explicitly through a ToolCtx record; environment reads occur exactly
// once at the driver entry").
type Budgets struct {
	MaxLocals   int
	MaxASTNodes int
	MaxCBytes   int
}

const (
	defaultMaxLocals   = 4096
	defaultMaxASTNodes = 100_000
	defaultMaxCBytes   = 8 * 1024 * 1024
)

// BudgetsFromEnv reads X07_MAX_LOCALS / X07_MAX_AST_NODES / X07_MAX_C_BYTES
// once, falling back to defaults for unset or malformed values.
func BudgetsFromEnv() Budgets {
	return Budgets{
		MaxLocals:   envInt("X07_MAX_LOCALS", defaultMaxLocals),
		MaxASTNodes: envInt("X07_MAX_AST_NODES", defaultMaxASTNodes),
		MaxCBytes:   envInt("X07_MAX_C_BYTES", defaultMaxCBytes),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// BudgetError reports a single exceeded limit: spec §7 requires the exact
// limit and measured value, never a silent truncation.
type BudgetError struct {
	Code    string // E_BUDGET_LOCALS | E_BUDGET_AST_NODES | E_BUDGET_C_BYTES
	Limit   int
	Measured int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%s: limit %d exceeded (measured %d)", e.Code, e.Limit, e.Measured)
}

// CheckASTNodes counts every node in the document and compares against the
// budget.
func CheckASTNodes(doc *x07ast.Document, b Budgets) error {
	n := countNodes(doc)
	if n > b.MaxASTNodes {
		return &BudgetError{Code: "E_BUDGET_AST_NODES", Limit: b.MaxASTNodes, Measured: n}
	}
	return nil
}

func countNodes(doc *x07ast.Document) int {
	n := 0
	count := func(e *x07ast.Expr) bool { n++; return true }
	for _, d := range doc.Decls {
		n++
		if d.Body != nil {
			d.Body.Walk(count)
		}
	}
	if doc.Solve != nil {
		doc.Solve.Walk(count)
	}
	return n
}

// CheckLocals counts `let` bindings across the document against the
// budget.
func CheckLocals(doc *x07ast.Document, b Budgets) error {
	n := 0
	count := func(e *x07ast.Expr) bool {
		if !e.IsAtom && e.Head == "let" {
			n++
		}
		return true
	}
	for _, d := range doc.Decls {
		if d.Body != nil {
			d.Body.Walk(count)
		}
	}
	if doc.Solve != nil {
		doc.Solve.Walk(count)
	}
	if n > b.MaxLocals {
		return &BudgetError{Code: "E_BUDGET_LOCALS", Limit: b.MaxLocals, Measured: n}
	}
	return nil
}

// CheckCBytes compares emitted C source length against the budget.
func CheckCBytes(source string, b Budgets) error {
	n := len(source)
	if n > b.MaxCBytes {
		return &BudgetError{Code: "E_BUDGET_C_BYTES", Limit: b.MaxCBytes, Measured: n}
	}
	return nil
}
