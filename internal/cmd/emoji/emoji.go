// Package emoji provides symbol constants for CLI output.
package emoji

// Status symbols used in tables and reports.
const (
	// Success marks a completed operation or a configured feature.
	Success = "✓"

	// Error marks a failed operation.
	Error = "✗"

	// Warning marks a non-fatal problem.
	Warning = "!"

	// Unconfigured marks a feature that is installed but not active.
	Unconfigured = "-"

	// Broken marks a feature with missing plugins.
	Broken = "⚠"

	// Unknown represents an indeterminate state.
	Unknown = "?"
)

// Check returns Success for true and Unconfigured for false.
func Check(ok bool) string {
	if ok {
		return Success
	}
	return Unconfigured
}
