// Package shuffleio caches handles to remote shuffle objects and hands out
// read and write sessions over them.
//
// Every (job, stage) pair owns exactly one object in the remote store. Many
// goroutines in one process need that object, but it must be created and
// opened at most once per process:
//
//   - HandleCache is the get-or-create-then-open registry. Lookups of an open
//     handle take no locks; creation resolves races by insert-if-absent and
//     discards the loser; opening uses a per-handle double-checked lock so the
//     store sees exactly one Open per object.
//   - IOManager is the session factory on top of it. ModeSync and ModeAsync
//     differ in how a writer flushes partitions; readers come in sequential
//     and parallel variants.
//   - store.Store is the remote client (memstore, bigcache, redis backends).
//
// Layout inside an object:
//
//	dkey = reduce partition id
//	akey = map task id [ "." flush seq ]
//	value = wire block of key/value records
//
// Typical use:
//
//	m, _ := shuffleio.New(shuffleio.Options{JobID: "app-20240101-0007", Store: st})
//	defer m.Close(ctx)
//	w, _ := m.OpenWriteSession(ctx, numPartitions, stageID, mapTaskID)
//	_ = w.Write(ctx, p, key, value)
//	status, _ := w.Close(ctx)
package shuffleio
