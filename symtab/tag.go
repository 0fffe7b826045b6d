// Package symtab implements nested symbol tables and tag binding
// across the five Algol 68 tag families (§3.3, §3.4, §4.2):
// identifiers, indicants, labels, operators and priority declarations.
package symtab

import (
	"fmt"

	"github.com/a68/core"
	"github.com/a68/mode"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return gtrace.SyntaxTracer
}

var serialID int32 = 1 // must not start at 0; 0 means "no tag"

// StorageQualifier distinguishes LOC from HEAP for variable
// declarations and generators (§3.4, §4.7 "Generators").
type StorageQualifier int8

const (
	LocQualifier StorageQualifier = iota
	HeapQualifier
)

// Tag is a declaration record (§3.4): owning table, family, declared
// mode, the AST node of the defining occurrence, an optional body node
// (operator routine-text, or variable-declaration generator), its
// offset/size within the containing frame, a storage qualifier, the
// scope-assignment bookkeeping the scope checker fills in, and
// used/portable flags for warnings (§7 taxonomy item 3).
type Tag struct {
	Name   string
	Family core.TagFamily
	Id     int32

	Table *Table // owning symbol table

	Mode mode.ModeId
	Decl core.Node // AST node of the defining occurrence
	Body core.Node // operator/variable-declaration generator, if any

	Offset    int
	Size      int
	Qualifier StorageQualifier

	ScopeAssigned bool
	ScopeLevel    int

	Used      bool
	Portable  bool

	// Sibling/Children let identifiers form small trees, mirroring the
	// teacher's Tag (e.g. a STRUCT identity declaration's component
	// identifiers hang off the struct tag).
	Sibling  *Tag
	Children *Tag
}

func newTag(name string, family core.TagFamily) *Tag {
	serialID++
	return &Tag{Name: name, Family: family, Id: serialID, Portable: true}
}

func (tg *Tag) String() string {
	return fmt.Sprintf("<%s '%s'[%d]>", tg.Family, tg.Name, tg.Id)
}

// AppendChild appends a rightmost child tag and returns the receiver
// for chaining (mirrors the teacher's Tag.AppendChild).
func (tg *Tag) AppendChild(ch *Tag) *Tag {
	if tg.Children == nil {
		tg.Children = ch
		return tg
	}
	next := tg.Children
	for next.Sibling != nil {
		next = next.Sibling
	}
	next.Sibling = ch
	return tg
}

// MarkUsed records that this tag was referenced from an applied
// occurrence, clearing the "tag not used" warning condition (§7).
func (tg *Tag) MarkUsed() {
	tg.Used = true
}
