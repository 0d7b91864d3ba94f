// Package daemonctl launches, stops, and inspects the clipforge daemon from
// the CLI. It talks to the running daemon over its HTTP API and falls back to
// the pid file and the queue database when the API does not answer.
package daemonctl
