// Package daemonrun assembles the clipforge daemon process: logging, the
// queue store, notification sinks, the auto-clip and workflow managers, the
// converter and export optimizer. It blocks until the process is signalled.
package daemonrun
