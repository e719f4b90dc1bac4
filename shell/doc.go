// Package shell holds the infrastructure shared by the loan command and query handlers:
// retry with exponential backoff for concurrency conflicts, the handler result that carries
// business outcomes and retry metadata, and the observability helpers used by the observable wrappers.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'infrastructure' layer.
package shell
