// Package primer extracts payments from the Primer API within a date window.
package primer
