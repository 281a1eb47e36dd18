// Package postgres provides the connection pool, tern migrations, and the
// role/permission repository. The migration set also installs the trigger
// that publishes class status updates on the change feed channel.
package postgres
