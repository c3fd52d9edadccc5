// Package sim provides the discrete-event simulation engine for CELAVI
// circular-economy runs.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - item.go: Item state and its owned pathway snapshot
//   - event.go: Event types that drive the simulation (entry, transition,
//     graph refresh, yearly LCA handoff)
//   - simulator.go: the event loop and the Context that owns every ledger
//
// # Architecture
//
// The sim package holds the kernel and the ledgers; the supply-chain
// economics live in sub-packages:
//   - sim/costmethods/: per-step cost and revenue functions, uncertainty
//     modes, learning curves, the path_dict parameter store
//   - sim/costgraph/: the stage graph, least-cost pathway choice and
//     periodic cost refresh
//   - sim/tables/: CSV readers for the external input tables
//   - sim/store/: SQLite sink for LCA flows, criterion history and
//     final inventories
//
// # Time
//
// The clock is an integer timestep. Events run in (timestep, priority,
// insertion) order and only events before MaxTimesteps execute. Graph
// refreshes and LCA handoffs have priority over item events, so an item
// entering on a refresh timestep always sees the refreshed graph. An item reads the
// graph exactly once, when it enters; later refreshes only affect items
// that enter after them.
package sim
