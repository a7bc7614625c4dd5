// Package waketimer is the in-process platform timer the scheduler programs.
//
// A single goroutine owns a min-heap of registrations ordered by due instant
// and sleeps until the earliest one. Sleeps are capped at one minute and the
// heap is compared against the wall clock on every wake-up, so a machine that
// was suspended past a due instant fires it as soon as it resumes.
//
// Every registration gets a unique Handle. Arm and Cancel travel through one
// channel, so a Cancel issued before an Arm is always applied before it.
package waketimer
