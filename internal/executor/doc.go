// Package executor implements a breadth-first, batch-friendly GraphQL executor
// with explicit runtime hooks for synchronous resolution, depth-wise batching of
// asynchronous work, abstract-type resolution, and leaf serialization.
//
// # Overview
//
// The executor runs validated documents against a gqlparser *ast.Schema. It
// follows a level-by-level (BFS) execution model designed to:
//   - Expand synchronous fields immediately without adding batch depth.
//   - Collect asynchronous (resolver-backed) fields encountered at the current
//     depth and resolve them in a single call to Runtime.BatchResolveAsync.
//   - Complete values according to the GraphQL specification (lists, leafs,
//     objects, abstract types), including Non-Null null-propagation rules.
//   - Accumulate located errors while allowing partial success.
//
// # Preparation
//
//  1. The operation is chosen by name, or by uniqueness when unnamed.
//  2. Variables are coerced against the operation's variable definitions.
//     Errors here stop execution.
//  3. The root object type is taken from the operation. Subscriptions are
//     rejected.
//
// # Execution Model
//
// Completed values are written into a response tree of slots. Every slot knows
// its parent and whether its type is Non-Null. Nullifying a Non-Null slot
// nullifies its parent, up to the nearest nullable ancestor; any async task
// queued under a nullified slot is dropped before it reaches the runtime.
//
// The Runtime classifies fields through IsAsync:
//
//   - Synchronous fields are resolved immediately via Runtime.ResolveSync and
//     completed in place. Object results keep expanding synchronously.
//   - Asynchronous fields are queued and resolved in batch via
//     Runtime.BatchResolveAsync, once per depth.
//
// For a graph with asynchronous depth d, BatchResolveAsync is invoked exactly d
// times. Purely synchronous descents do not increase d.
//
// Mutation root fields execute serially: each root field, including every
// async depth below it, completes before the next root field starts.
//
// # Value Completion
//
//   - Null: nil results (including typed nils) produce GraphQL null. For a
//     Non-Null type a "Cannot return null" error is recorded, unless the null
//     came from a resolver error, which is recorded instead.
//   - List: elements are completed with index-aware paths. A null element for a
//     Non-Null inner type nullifies the list.
//   - Leaf (Scalar/Enum): deferred to Runtime.SerializeLeafValue.
//   - Abstract (Interface/Union): Runtime.ResolveType picks the concrete object
//     type, which must be a possible type of the abstract type.
//   - Object: subfields are collected, honouring fragments on interfaces and
//     unions and the @skip/@include directives.
//
// See runtime.go for the Runtime contract.
package executor
