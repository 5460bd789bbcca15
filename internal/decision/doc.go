// Package decision chooses the replacement agent for an orphaned task.
//
// The recovery coordinator depends only on the [Client] interface. Three
// implementations ship with the package:
//
//   - [RuleClient]: deterministic capability and health matching, no I/O
//   - [GenerativeClient] over an [AnthropicGenerator]
//   - [GenerativeClient] over a [GeminiGenerator]
//
// Generative clients send a prompt built by [BuildPrompt] and read the
// reply with [ParseResponse], which expects TARGET: and THOUGHT: lines.
//
// # Errors
//
// Every failure is an [*Error] with a [Kind]. Callers use [IsParseFailure],
// [IsTimeout] and [IsTransport] to tell an unreadable answer (the service
// responded, but not usefully) apart from a service that could not be
// reached or did not answer in time.
package decision
