// Package viewpure walks a contract's function bodies to infer the strictest
// state mutability consistent with what they actually do, and compares that
// inferred requirement against the declared #[pure]/#[view]/#[payable]
// attribute (nonpayable is the default when no attribute is present).
//
// The ordering is Pure < View < NonPayable < Payable: a storage read needs at
// least View, a storage write needs at least NonPayable, and reading
// msg.value via value() needs Payable regardless of where it falls in that
// chain. Function calls propagate the callee's declared mutability, with
// Payable folded down to NonPayable for the caller (a payable callee does not
// make its caller payable).
package viewpure

import (
	"fmt"

	"evmc/internal/ast"
	"evmc/internal/errors"
)

// Checker infers and validates mutability for every function in a contract.
type Checker struct {
	storageStructs map[string]bool
	functions      map[string]*ast.Function
	errs           []errors.CompilerError
}

func NewChecker() *Checker {
	return &Checker{}
}

// builtinLevel classifies the standard-library environment reads that don't
// touch contract storage: block/tx-like metadata and external-call members
// all read at View, matching spec.md §4.6.
var builtinLevel = map[string]ast.StateMutability{
	"sender":       ast.View,
	"origin":       ast.View,
	"timestamp":    ast.View,
	"number":       ast.View,
	"call":         ast.View,
	"delegatecall": ast.View,
	"staticcall":   ast.View,
}

// builtinWrite lists environment calls that count as a state-changing effect
// even though they don't touch a storage struct field directly (emitting a
// log is observable the same way a storage write is).
var builtinWrite = map[string]bool{
	"emit": true,
}

// Check infers mutability for every function declared in contract and
// returns every violation and "could be tighter" warning found, in
// declaration order.
func (c *Checker) Check(contract *ast.Contract) []errors.CompilerError {
	c.storageStructs = make(map[string]bool)
	c.functions = make(map[string]*ast.Function)
	c.errs = nil

	for _, item := range contract.Items {
		if s, ok := item.(*ast.Struct); ok && s.Attribute != nil && s.Attribute.Name == "storage" {
			c.storageStructs[s.Name.Value] = true
		}
	}
	for _, item := range contract.Items {
		if fn, ok := item.(*ast.Function); ok {
			c.functions[fn.Name.Value] = fn
		}
	}

	for _, item := range contract.Items {
		if fn, ok := item.(*ast.Function); ok {
			c.checkFunction(fn)
		}
	}
	return c.errs
}

// requirement accumulates the strictest level seen so far, along with the
// position of the construct that drove it there (used as the diagnostic
// span). msg.value usage is tracked separately since it is its own
// violation class regardless of where it falls in the Pure..Payable order.
type requirement struct {
	level     ast.StateMutability
	levelPos  ast.Position
	usesValue bool
	valuePos  ast.Position
}

func (r *requirement) bump(level ast.StateMutability, pos ast.Position) {
	if level > r.level {
		r.level = level
		r.levelPos = pos
	}
}

func (c *Checker) checkFunction(fn *ast.Function) {
	c.checkReadsWritesClause(fn)

	if fn.Body == nil {
		return
	}

	req := &requirement{}
	c.walkBlock(fn.Body, req)

	declared := fn.DeclaredMutability()

	if req.usesValue && declared != ast.Payable {
		c.errs = append(c.errs, errors.NewSemanticError(errors.ErrorNonPayableUsesValue,
			fmt.Sprintf("function '%s' reads msg.value via value() but is not declared payable", fn.Name.Value),
			req.valuePos).
			WithHelp("add the #[payable] attribute, or stop reading value() if the function should not receive funds").
			Build())
	}

	if req.level > declared {
		code := errors.ErrorPureReadsState
		violation := "reads state or environment"
		if req.level >= ast.NonPayable {
			code = errors.ErrorViewWritesState
			violation = "writes state"
		}
		c.errs = append(c.errs, errors.NewSemanticError(code,
			fmt.Sprintf("function '%s' is declared %s but %s", fn.Name.Value, declared, violation),
			req.levelPos).
			WithNote(fmt.Sprintf("inferred requirement: %s", req.level)).
			WithSuggestion(fmt.Sprintf("declare the function %s or remove the offending access", req.level)).
			Build())
		return
	}

	effectiveRequired := req.level
	if req.usesValue && effectiveRequired < ast.Payable {
		effectiveRequired = ast.Payable
	}
	if effectiveRequired < declared && c.canTighten(fn) {
		c.errs = append(c.errs, errors.NewSemanticWarning(errors.WarningMutabilityCouldBeStricter,
			fmt.Sprintf("function '%s' is declared %s but only needs %s", fn.Name.Value, declared, effectiveRequired),
			fn.NodePos()).
			WithSuggestion(fmt.Sprintf("consider declaring it %s instead", effectiveRequired)).
			Build())
	}
}

// checkReadsWritesClause flags a declared reads(...)/writes(...) clause that
// contradicts the function's own pure/view attribute: a writes(...) clause
// only makes sense on a nonpayable or payable function, and a reads(...)
// clause is meaningless on a pure one.
func (c *Checker) checkReadsWritesClause(fn *ast.Function) {
	if len(fn.Writes) > 0 && fn.DeclaredMutability() < ast.NonPayable {
		c.errs = append(c.errs, errors.NewSemanticError(errors.ErrorMutabilityConflict,
			fmt.Sprintf("function '%s' declares a writes(...) clause but is %s", fn.Name.Value, fn.DeclaredMutability()),
			fn.NodePos()).
			WithHelp("a function that writes storage cannot be pure or view").
			Build())
	}
	if len(fn.Reads) > 0 && fn.DeclaredMutability() == ast.Pure {
		c.errs = append(c.errs, errors.NewSemanticError(errors.ErrorMutabilityConflict,
			fmt.Sprintf("function '%s' declares a reads(...) clause but is pure", fn.Name.Value),
			fn.NodePos()).
			WithHelp("a pure function cannot declare reads(...) on a storage struct").
			Build())
	}
}

// canTighten reports whether it's worth suggesting a stricter mutability:
// constructors exist to write storage even when a specific call path
// happens not to, and an empty body has nothing to infer from.
func (c *Checker) canTighten(fn *ast.Function) bool {
	if fn.Attribute != nil && fn.Attribute.Name == "create" {
		return false
	}
	if fn.Body == nil {
		return false
	}
	return len(fn.Body.Items) > 0 || fn.Body.TailExpr != nil
}

func (c *Checker) walkBlock(block *ast.FunctionBlock, req *requirement) {
	if block == nil {
		return
	}
	for _, item := range block.Items {
		c.walkBlockItem(item, req)
	}
	if block.TailExpr != nil {
		c.walkBlockItem(block.TailExpr, req)
	}
}

func (c *Checker) walkBlockItem(item ast.FunctionBlockItem, req *requirement) {
	switch n := item.(type) {
	case *ast.LetStmt:
		c.walkExpr(n.Expr, req)
	case *ast.AssignStmt:
		c.markWrite(n.Target, req)
		c.walkExpr(n.Value, req)
	case *ast.RequireStmt:
		for _, arg := range n.Args {
			c.walkExpr(arg, req)
		}
	case *ast.IfStmt:
		c.walkExpr(n.Condition, req)
		c.walkBlock(&n.ThenBlock, req)
		c.walkBlock(n.ElseBlock, req)
	case *ast.ReturnStmt:
		c.walkExpr(n.Value, req)
	case *ast.ExprStmt:
		c.walkExpr(n.Expr, req)
	case *ast.Comment:
		// no mutability effect
	}
}

func (c *Checker) walkExpr(expr ast.Expr, req *requirement) {
	if expr == nil {
		return
	}
	switch n := expr.(type) {
	case *ast.FieldAccessExpr:
		if _, ok := c.storageInstance(n.Target); ok {
			req.bump(ast.View, n.NodePos())
		} else {
			c.walkExpr(n.Target, req)
		}
	case *ast.IndexExpr:
		c.walkExpr(n.Target, req)
		c.walkExpr(n.Index, req)
	case *ast.CallExpr:
		c.walkCall(n, req)
	case *ast.StructLiteralExpr:
		for _, f := range n.Fields {
			c.walkExpr(f.Value, req)
		}
	case *ast.BinaryExpr:
		c.walkExpr(n.Left, req)
		c.walkExpr(n.Right, req)
	case *ast.UnaryExpr:
		if n.Op == "&" && n.Mut {
			if _, ok := c.storageInstance(borrowTarget(n.Value)); ok {
				req.bump(ast.NonPayable, n.NodePos())
			}
		}
		c.walkExpr(n.Value, req)
	case *ast.ParenExpr:
		c.walkExpr(n.Value, req)
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			c.walkExpr(el, req)
		}
	case *ast.IdentExpr, *ast.LiteralExpr, *ast.CalleePath:
		// leaves; no mutability effect on their own
	}
}

// borrowTarget unwraps the field/index chain a "&mut ..." unary expression
// wraps, so storageInstance can check whatever sits at the bottom of it.
func borrowTarget(expr ast.Expr) ast.Expr {
	switch n := expr.(type) {
	case *ast.FieldAccessExpr:
		return n.Target
	case *ast.IndexExpr:
		return borrowTarget(n.Target)
	default:
		return expr
	}
}

// markWrite analyzes an assignment target: a field or index access rooted at
// a storage struct is a write, everything nested inside it (e.g. a map key
// expression) is still read in the ordinary sense.
func (c *Checker) markWrite(target ast.Expr, req *requirement) {
	switch n := target.(type) {
	case *ast.FieldAccessExpr:
		if _, ok := c.storageInstance(n.Target); ok {
			req.bump(ast.NonPayable, n.NodePos())
			return
		}
		c.walkExpr(n.Target, req)
	case *ast.IndexExpr:
		c.markWrite(n.Target, req)
		c.walkExpr(n.Index, req)
	default:
		c.walkExpr(target, req)
	}
}

func (c *Checker) storageInstance(expr ast.Expr) (string, bool) {
	ident, ok := expr.(*ast.IdentExpr)
	if !ok {
		return "", false
	}
	if c.storageStructs[ident.Name] {
		return ident.Name, true
	}
	return "", false
}

func (c *Checker) walkCall(call *ast.CallExpr, req *requirement) {
	for _, arg := range call.Args {
		c.walkExpr(arg, req)
	}

	name, ok := calleeName(call.Callee)
	if !ok {
		return
	}

	if callee, ok := c.functions[name]; ok {
		level := callee.DeclaredMutability()
		if level == ast.Payable {
			level = ast.NonPayable
		}
		req.bump(level, call.NodePos())
		return
	}

	if name == "value" {
		req.usesValue = true
		req.valuePos = call.NodePos()
		return
	}
	if builtinWrite[name] {
		req.bump(ast.NonPayable, call.NodePos())
		return
	}
	if level, ok := builtinLevel[name]; ok {
		req.bump(level, call.NodePos())
	}
}

func calleeName(callee ast.Expr) (string, bool) {
	switch c := callee.(type) {
	case *ast.IdentExpr:
		return c.Name, true
	case *ast.CalleePath:
		if len(c.Parts) == 0 {
			return "", false
		}
		return c.Parts[len(c.Parts)-1].Value, true
	default:
		return "", false
	}
}
