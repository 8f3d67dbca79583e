// Package viz renders friction runs in the terminal.
//
// [WriteSummary] prints the plain result listing, [Report] a styled table
// with asciigraph charts. [Model] is a Bubble Tea view fed by the driver
// through [ProgramObserver]; [RunLive] runs both together.
//
// # Key Bindings
//
//	Tab/J   - Select next cube
//	K       - Select previous cube
//	T       - Cycle color themes
//	?       - Show help overlay
//	Q       - Close the view; the run continues
package viz
