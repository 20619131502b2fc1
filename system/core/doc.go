// Package core provides the ObjectOS kernel: the service registry, event/hook
// bus, dependency resolver, lifecycle manager, and health monitor that every
// plugin runs on top of.
//
// The kernel models a single cooperative thread of control. Plugins move
// through four states (constructed, registered, initialized, started) and
// are torn down in reverse order on shutdown or rollback. All kernel-owned
// maps are mutex-guarded because the host process is a real Go binary with
// real OS threads (an HTTP handler and the job dispatch loop both reach into
// the kernel concurrently), even though the conceptual model above them is
// single-threaded.
package core
