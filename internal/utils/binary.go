package utils

import "unicode/utf8"

// binarySniffLength bounds how many bytes are inspected when classifying content.
const binarySniffLength = 8000

// IsBinary reports whether the provided byte slice appears to contain binary
// data. Content is binary when it is not valid UTF-8 or contains a NUL byte
// within the sniff window.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	window := data
	if len(window) > binarySniffLength {
		// Back off a possibly truncated trailing rune so a cut multi-byte
		// sequence does not misclassify valid text.
		window = window[:binarySniffLength]
		for len(window) > 0 && !utf8.RuneStart(window[len(window)-1]) {
			window = window[:len(window)-1]
		}
		if len(window) > 0 && window[len(window)-1] >= utf8.RuneSelf {
			window = window[:len(window)-1]
		}
	}
	if !utf8.Valid(window) {
		return true
	}
	for _, byteValue := range window {
		if byteValue == 0 {
			return true
		}
	}
	return false
}
