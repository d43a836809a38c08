package cmd

import "syscall"

// syscallUmask restricts the process umask to 0007 at boot: owner and
// group get full rights, others get none, so a bug in a write path
// never hands out world-readable permissions on a file that should be
// private to the node and its group.
func syscallUmask() {
	syscall.Umask(0007)
}
