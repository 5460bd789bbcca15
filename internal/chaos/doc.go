// Package chaos exposes the operator control surface: fault injection,
// manual recovery, cascade failures, stress tests, heartbeat silencing and
// the two global switches (Never-Stop and the emergency stop).
//
// Every operation is a synchronous mutation of the fleet model. None of
// them makes recovery decisions; the continuity monitor reacts to their
// effects on its next tick.
package chaos
