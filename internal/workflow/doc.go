// Package workflow drives the demo swarm workflow: one task per agent,
// every agent busy, and a progress counter that climbs to 100 before the
// fleet is restored to its initial configuration.
//
// Only one run is active at a time. Progress pauses while the emergency
// stop is engaged and resumes where it left off once it is released.
package workflow
