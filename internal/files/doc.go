// Package files provides file system discovery and management for report
// files.
//
// Discovery finds ATP list reports (*.lis) in a directory, optionally
// descending into subdirectories, and orders them by modification time.
//
// Manager performs writes relative to the configured data directories.
// Writes go through a temporary file and a rename so a crashed process never
// leaves a partially written report behind.
//
// Example usage:
//
//	discovery := files.NewDiscovery("/path/to/base")
//	reports, err := discovery.FindReports("cases")
//
//	manager := files.NewManager(paths)
//	if err := manager.WriteFileAtomic("uploads/abc.lis", r); err != nil {
//	    // handle
//	}
package files
