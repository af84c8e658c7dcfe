// Package index maintains the record id index stored under a single
// shared ledger key.
//
// # Overview
//
// The ledger cannot enumerate its own keys, so the only way any client
// discovers records is the index: one ordered list of ids serialized
// under one well-known key. Every submission must extend that list, and
// every listing starts by reading it.
//
// # The Lost-Update Hazard
//
// The substrate offers per-key atomic get and set but no conditional
// write, so a naive append is read-then-write over shared state:
//
//	client 1                      client 2
//	--------                      --------
//	read index -> [X]
//	                              read index -> [X]
//	write [X, A]
//	                              write [X, B]        <- clobbers A
//
//	final index: [X, B]. Record A exists but is unreachable from any
//	listing: an orphan.
//
// Both writes succeeded; the ledger saw nothing wrong. The failure is
// silent and permanent until something rediscovers A.
//
// # Serialization Strategy
//
// This package closes the hazard by funneling every index write through
// a single coordinator goroutine owned by the Manager:
//
//	Append(id) ----\
//	Append(id) -----> requests channel --> coordinator --> ledger
//	Append(id) ----/      (one at a time: read, dedupe, write)
//
// Within a process the guarantee is absolute: two Appends can never
// interleave their read-modify-write cycles. Across processes the same
// guarantee is obtained by deployment shape, not code: a site runs one
// daemon (cmd/cintel daemon) and routes submissions through its submit
// endpoint, making that daemon's coordinator the single writer for the
// namespace. Independent processes writing the same namespace directly
// reintroduce the race; doctor can detect and repair the resulting
// orphans after the fact, but prevention is the deployment's job.
//
// Two alternatives were considered and rejected: per-writer append logs
// merged at read time (readers cannot discover writers on a substrate
// with no enumeration), and compare-and-swap retry loops (the ledger
// contract deliberately has no conditional write, and widening it would
// strand the backends that cannot offer one).
//
// # Degradation Rules
//
// An absent index reads as an empty list. An unparsable index also reads
// as an empty list with a logged warning; the next successful append
// rebuilds the key. Neither condition is ever fatal to a reader, and
// records keep their own keys regardless, so an index rebuild loses
// reachability only until ids are re-appended.
//
// # Usage
//
//	mgr := index.New(client, index.Config{Namespace: "cintel"})
//	defer mgr.Close()
//
//	if err := mgr.Append(ctx, rec.ID); err != nil {
//	    return err
//	}
//
//	ids, err := mgr.List(ctx)
package index
