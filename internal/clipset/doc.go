// Package clipset is the entry point the HTTP server and CLI use to work with
// the audio catalog.
//
// Service wires the record store, raw byte store, clip identity store,
// sampler, set cache, transcoder and archive builder into the three core
// operations:
//
//   - RequestNewSet samples clips from the corpus and returns the set with
//     that membership, creating it only when no equal set exists.
//   - RequestExistingSet loads a set by identifier without sampling.
//   - BuildArchive streams a set's fragments as a tar archive, optionally
//     through the on-disk archive cache.
//
// Ingestion helpers (AddFile, ListFiles, FileInfo, Download) cover the file
// side of the catalog.
package clipset
