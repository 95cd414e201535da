// Package container implements the two-process container lifecycle.
//
// # Overview
//
// The host half (Run) re-executes the current binary inside the
// namespaces requested by the configuration and drives it through
// setup, hook execution and the final exec. The container half (Init)
// runs in the re-executed process; it is a no-op unless argv[1] is the
// reserved init argument.
//
// # Protocol
//
// The two halves synchronize over a pair of anonymous pipes with
// newline-terminated messages, always in this order:
//
//	host      -> container: user-namespace-mapping-complete
//	container -> host:      container-setup-complete
//	host      -> container: exec-process
//
// The host writes uid_map / setgroups / gid_map before the first
// message, while the container blocks; the container joins preexisting
// namespaces and performs mounts before the second; pre-start hooks
// run between the second and the third. Any unexpected line, EOF or
// over-length line aborts the receiving side.
//
// A third pipe carries a one-shot bootstrap payload (configuration and
// log level) from host to container right after the clone.
package container
