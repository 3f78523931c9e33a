// Package archivecache keeps built clip-set archives on disk so repeated
// downloads of the same set skip transcoding.
//
// An archive is fully determined by its set and the raw store, so the cache
// holds nothing that cannot be rebuilt. Entries are written atomically as
// <dir>/<setId>.tar; a failed build leaves no entry behind.
//
// The cache is disabled by default. Enable it in config.toml:
//
//	[archive]
//	cache_enabled = true
//
//	[paths]
//	archive_cache_dir = "~/.local/share/audioserver/archives"
package archivecache
