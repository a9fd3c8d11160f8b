// Package runlog persists run history and carried device state to SQLite.
//
// Two concerns live here:
//
//   - Run records: one row per Execute cycle, used by the API to list
//     recent runs and by operators to audit what the rig actually did.
//   - Device state: the last known digital line levels and analog
//     baselines per controller, so a restart resumes compilation from
//     the real hardware state instead of zeros.
//
// Both are intentionally write-light. A run insert happens once per
// acquisition cycle and a state upsert once per legacy profile handoff,
// so the single-writer SQLite connection is never a bottleneck.
package runlog
