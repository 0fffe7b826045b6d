/*
Package core is the root of an Algol 68 interpreter core: the mode
(type) system, the semantic analyser, and a tree-walking evaluator, for
an already-parsed program tree. Package structure is as follows:

■ mode: the mode table, interns modes, computes structural
equivalence, derived modes, well-formedness and coercibility.

■ symtab: nested symbol tables and tag binding across five tag
families (identifiers, indicants, labels, operators, priorities).

■ check: the mode checker, coercion inserter and scope checker.

■ frame: the activation-record stack used by the evaluator.

■ heap: a handle-indirected mark-sweep garbage collector for row and
name values.

■ genie: the tree-walking evaluator.

■ stdenv: the standard environ (prelude modes, operators, identifiers).

■ diag: structured diagnostics.

■ transput, mp: thin interfaces to the (externally supplied) transput
and multi-precision-arithmetic collaborators.

The base package contains data types used throughout all the other
packages: the grammatical attribute enumeration, source spans, and the
Node interface an external scanner/parser's tree must satisfy.

License

Governed by a 3-Clause BSD license.
*/
package core
