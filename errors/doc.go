// Package errors provides the failure taxonomy for execkit.
// Every failure surfaced by an invocation is an *AppError carrying a
// machine-readable code, a retryable flag and the underlying cause.
package errors
