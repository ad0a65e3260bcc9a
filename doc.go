// Package cabsim is the signal-processing and state-management core of a
// guitar cabinet-simulation unit.
//
// A Unit bundles every piece of mutable state — convolution engine, IR
// bank, selector debouncer, settings store, tone stage — behind two entry
// points with strictly separated duties:
//
//   - ProcessBlock runs in the hard-real-time audio context. It never
//     blocks, allocates, logs, or touches storage.
//   - ControlTick runs in the best-effort control loop (typically every
//     10 ms). All slow work happens here: debouncing the selector,
//     copying a newly selected kernel, flushing settings.
//
// The two contexts share the active kernel and the bypass flag through
// single atomic hand-offs; there are no locks on the audio path.
package cabsim
