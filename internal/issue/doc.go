// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The Issue catalog holds longer Markdown guidance, rendered
// with glamour, for the bundle failures users hit most often.
package issue
