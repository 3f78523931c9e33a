// Package textutil normalizes user-supplied names before they reach the
// filesystem or an archive entry header.
package textutil
