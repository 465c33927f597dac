// Package metsalto converts digitised newspaper issues into structured
// article records. Each issue archive holds one METS structural descriptor
// and one ALTO layout document per page; the structural map declares which
// page regions make up each article and in what order they are read.
//
// This package contains domain types, interfaces and the pure text
// reconstruction logic. Implementations live in subdirectories named after
// their primary dependency (etree/, targz/, parquet/, sqlite/, slog/).
// Orchestration lives in extract/ (one issue) and dispatch/ (many issues).
package metsalto
