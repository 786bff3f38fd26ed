// Package process starts shell command lines as detached background processes
// and delivers stop signals to them.
//
// On Unix every launch runs in a new session, so the shell and everything it
// spawns share one process group whose id equals the shell's pid. Interrupt
// and Kill signal the whole group, and Alive reports whether any member of the
// group survives, which lets a forced sweep catch grandchildren that outlived
// the shell.
//
// On Windows launches get a new process group and no console. Interrupt asks
// the tree to close through taskkill without /F; Kill uses taskkill /F /T and
// falls back to terminating the direct child. Alive only observes the direct
// child there.
package process
