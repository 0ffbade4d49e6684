//go:build !physics_nochecks

package common

// SafetyChecks gates validation that release builds can skip with -tags physics_nochecks.
const SafetyChecks = true
