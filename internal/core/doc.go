// Package core runs cleaning profiles over loaded tables.
//
// It ties the lower-level packages together and holds no transport code, so
// the web server and the batch CLI share it unchanged.
//
// # Profiles
//
// A [Profile] names the canonical labels a file is expected to carry, the
// extra null tokens of its source system, and how sparse rows and columns
// are handled. Profiles are read from YAML with [LoadProfiles]:
//
//	profiles:
//	  - name: contacts
//	    labels:
//	      name:  [cust, customer]
//	      email: [emladdr, "e-mail"]
//	    null_tokens: [tbd]
//	    merge: collect
//
// The "default" profile is always present. It skips the label search and
// only cleans whitespace and nulls.
//
// # Cleaning
//
// [Service.Clean] applies a profile in a fixed order: whitespace, label
// search, label mapping, null cleanup, column merge. With merge: rename the
// last step keeps repeated columns and suffixes their labels instead.
// [Service.CleanReader]
// adds loading, a concurrency limit and a timeout. [Service.Load] copies a
// cleaned table into PostgreSQL when a destination is configured.
//
// # Error Codes
//
// Errors are mapped to user-facing messages with [MapError]:
//
//   - LBL001-LBL002: label search (no label row, bad threshold)
//   - PRF001: unknown profile
//   - FILE001-FILE007: input files (size, csv, charset, empty, workbook, json, compression)
//   - RUN001-RUN003: run control (busy, cancelled, timed out)
//   - DB001-DB005: database loading
//   - ERR000: anything else; check the logs
package core
