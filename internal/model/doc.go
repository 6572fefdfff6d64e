// Package model defines the per-tick reading assembled by the monitor and
// consumed by the printer and the panel.
package model
