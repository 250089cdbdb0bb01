package client

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw resource bytes in the named encoding to UTF-8 text.
//
// cp949 and euc-kr share the x/text EUC-KR table, which covers the CP949 extension.
// With lenient set, invalid byte sequences are dropped; otherwise they fail with
// ErrDecode. A leading UTF-8 byte order mark is removed before decoding in both modes,
// since files re-saved as UTF-8 may still be declared cp949.
func Decode(raw []byte, encoding string, lenient bool) (string, error) {
	raw = bytes.TrimPrefix(raw, byteOrderMark)
	var text string
	switch strings.ToLower(encoding) {
	case "cp949", "euc-kr":
		out, err := korean.EUCKR.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		text = string(out)
		// U+FFFD is not representable in EUC-KR, so any occurrence marks an invalid sequence.
		if strings.ContainsRune(text, utf8.RuneError) {
			if !lenient {
				return "", fmt.Errorf("%w: invalid %s byte sequence", ErrDecode, encoding)
			}
			text = strings.ReplaceAll(text, string(utf8.RuneError), "")
		}
	case "utf-8", "utf8":
		if utf8.Valid(raw) {
			text = string(raw)
		} else {
			if !lenient {
				return "", fmt.Errorf("%w: invalid utf-8 byte sequence", ErrDecode)
			}
			text = strings.ToValidUTF8(string(raw), "")
		}
	default:
		return "", fmt.Errorf("%w: unsupported encoding %q", ErrDecode, encoding)
	}
	return text, nil
}
