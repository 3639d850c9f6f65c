// Package environment names the deployment stages dirbridge knows about.
// The logger factory uses it to pick output format and level defaults.
package environment
