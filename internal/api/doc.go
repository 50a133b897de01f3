// Package api holds the transport types shared by the IPC server, the HTTP
// API and the CLI, plus the converters from queue, workflow and logging
// models into them.
//
// JSON field names are camelCase. Queue statuses and lanes travel as their
// lowercase string values and timestamps are RFC 3339 in UTC.
package api
