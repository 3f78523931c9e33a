// Package catalog holds the audio domain model shared by every clip-set
// component: source files, clips, and clip sets, plus the canonical
// millisecond conversion and offset rendering used for identities and names.
//
// Clips reference their source by identifier only; nothing in this package
// navigates from one record to another.
package catalog
