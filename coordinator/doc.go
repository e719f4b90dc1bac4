// Package coordinator exposes the loan engine as one entry point.
//
// LoanCoordinator checks that reader and copy exist, runs the command handlers behind their
// observable wrappers and publishes the produced loan events once the unit of work is committed.
// A failed publish is logged and counted, the committed operation stays in place.
package coordinator
