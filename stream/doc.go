// Package stream relays data between a child process and caller code.
//
// A Pumper reads lines from a process output stream and hands each one to
// a LineConsumer. A Feeder copies bytes from a caller source to the
// process stdin. Both run on their own goroutine and share one lifecycle:
//
//	Idle --Start--> Running --Disable--> Disabled
//	                   \                    |
//	                    +-------> Done <----+
//
// A disabled relay keeps draining its source so the child never blocks on
// a full pipe, but stops forwarding. Relays never panic across goroutines;
// the first failure is stored and returned by Err.
package stream
