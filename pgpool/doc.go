// Package pgpool manages the process-wide PostgreSQL connection pool using
// pgx v5.
//
// Lifecycle:
//
//   - The pool is built once at startup from PG.HOST, PG.USER and PG.DBNAME
//     (see ConfigFromEnv) and verified by one acquire-and-release round trip
//     (see StartAndVerify). Failures at this stage are meant to stop the
//     process before it accepts traffic.
//   - Per request, callers lease a handle with Acquire or WithConn. Failures
//     here are recoverable and reported as ErrDatabaseConnection or
//     ErrAcquireTimeout.
//   - Connections are opened lazily up to Config.MaxSize. A handle returned
//     closed or inside a transaction is destroyed instead of recycled.
//   - Error strings are safe to log: they never contain the password or a
//     connection string.
//
// Handlers should depend on DB and receive the pool by injection. TestPool
// provides an in-memory DB for unit tests.
package pgpool
