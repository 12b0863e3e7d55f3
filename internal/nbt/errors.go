package nbt

import "fmt"

// FormatError reports bytes that violate the tag grammar: an unknown type id,
// a truncated stream, an End tag at the document root and similar.
type FormatError struct {
	Offset int64 // byte offset into the uncompressed stream
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("nbt: format error at offset %d: %s", e.Offset, e.Msg)
}
