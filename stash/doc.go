// Package stash holds nodes detached from a tree while a change log is
// applied.
//
// A change log moves a node by stashing it under a numeric address
// (stashNextSibling) and later inserting it elsewhere (insertStashedNode,
// replaceWithStashedNode). Restoring an entry consumes it:
//
//	table := stash.NewTable[treepatch.Node]()
//	table.Put(5, node)
//	n, ok := table.Take(5) // ok == true
//	_, ok = table.Take(5)  // ok == false
//
// Observers see every transition, which the interpreter uses for logging
// and for reporting entries that were never consumed.
package stash
