package rag

import (
	"fmt"

	"github.com/google/uuid"
)

// recordNamespace scopes the name-based UUIDs of indexed chunks.
var recordNamespace = uuid.MustParse("5b0e3f6a-8c1d-4e52-9a7b-2f4d6c8e1a30")

// RecordID is stable for a given source and per-source chunk ordinal, so
// re-ingesting the same corpus overwrites rather than duplicates.
func RecordID(source string, ordinal int) string {
	return uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%s:%d", source, ordinal))).String()
}
