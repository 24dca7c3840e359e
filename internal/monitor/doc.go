// Package monitor repeats audit cycles on an interval until cancelled.
//
// Recoverable cycle failures are logged and retried with exponential backoff;
// any other failure stops the loop. Waits can be shortened by a file-change trigger.
package monitor
