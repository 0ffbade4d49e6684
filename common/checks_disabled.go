//go:build physics_nochecks

package common

const SafetyChecks = false
