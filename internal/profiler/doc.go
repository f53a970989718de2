// Package profiler defines the domain types, collaborator interfaces, and error
// taxonomy shared by the catalog crawl, sample acquisition, profiling, and report
// aggregation stages.
package profiler
