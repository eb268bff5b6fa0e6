// Package bytecode compiles reactive binding expressions into a
// compact stack-machine instruction set and evaluates them against
// host-supplied state.
//
// The pipeline runs in four stages. A parsed expression tree
// (package ast) is first constant-folded, then compiled into a Unit:
// fixed-width instructions referencing deduplicated string and integer
// constant pools, with ternaries lowered to back-patched, PC-relative
// jumps. A post-emission dead-code sweep rewrites unreachable slots to
// no-ops. Finally Eval runs the unit's fetch-decode-execute loop in a
// single-use Context and yields one dynamic Value.
//
//	folded := bytecode.Fold(tree)
//	unit, err := bytecode.NewCompiler().Compile(folded)
//	if err != nil { ... }
//	bytecode.EliminateDeadCode(unit)
//
//	ctx := bytecode.NewContext(stateResolver, builtinRegistry)
//	result := bytecode.Eval(unit, ctx)
//
// Units are immutable after compilation and safe to share across
// goroutines; callers should compile once per distinct expression and
// cache the unit across frames (package cache automates this). Each
// evaluation needs a fresh Context carrying the operand stack, any
// local bindings, and the injected Resolver and Registry.
//
// Evaluation is deliberately permissive. Type-mismatched operators,
// unknown variables, out-of-range indices, division by zero and
// unregistered builtins all evaluate to null instead of raising, so a
// single bad binding degrades to an empty value rather than taking
// down a render frame. Stack faults set a sticky flag on the Context,
// inspectable via Failed, while the loop still runs to completion.
package bytecode
