// Package contracts provides the core descriptor types and collaborator interfaces for weave-go.
//
// This package defines the boundary surface of the interception pipeline:
//   - Operation: Structural description of a wrapped callable (name, parameters, return slot)
//   - Sink: Line-oriented output used by logging-style advice
//   - DiagnosticReporter: Channel used by validation-style advice to report rule violations
//   - AdviceContractError: Programming error raised when advice breaks the result/error invariant
//
// Descriptors are normally produced by whatever hosts the pipeline; the pipeline only reads them
// to let advice introspect the operation, for example when formatting log text.
package contracts
