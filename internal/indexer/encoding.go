package indexer

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported alongside normalized content.
const (
	encUTF8    = "utf-8"
	encUTF16LE = "utf-16le"
	encUTF16BE = "utf-16be"
)

type EncodingResult struct {
	Encoding string
	HasBOM   bool
}

// DetectEncoding classifies raw file bytes. Detection is BOM-first, then a
// null-byte heuristic for BOM-less UTF-16; anything else is treated as UTF-8.
func DetectEncoding(data []byte) EncodingResult {
	if len(data) >= 3 && bytes.Equal(data[:3], []byte{0xEF, 0xBB, 0xBF}) {
		return EncodingResult{Encoding: encUTF8, HasBOM: true}
	}
	if len(data) >= 2 {
		if bytes.Equal(data[:2], []byte{0xFF, 0xFE}) {
			return EncodingResult{Encoding: encUTF16LE, HasBOM: true}
		}
		if bytes.Equal(data[:2], []byte{0xFE, 0xFF}) {
			return EncodingResult{Encoding: encUTF16BE, HasBOM: true}
		}
	}

	if enc, ok := sniffUTF16(data); ok {
		return EncodingResult{Encoding: enc}
	}
	return EncodingResult{Encoding: encUTF8}
}

// sniffUTF16 looks for the alternating-null pattern ASCII-heavy source code
// produces when stored as UTF-16 without a BOM.
func sniffUTF16(data []byte) (string, bool) {
	if len(data) < 4 || len(data)%2 != 0 {
		return "", false
	}

	oddNulls, evenNulls := 0, 0
	for i := 0; i < len(data); i += 2 {
		if data[i] == 0 {
			evenNulls++
		}
		if data[i+1] == 0 {
			oddNulls++
		}
	}

	pairs := len(data) / 2
	if oddNulls*4 > pairs*3 {
		return encUTF16LE, true
	}
	if evenNulls*4 > pairs*3 {
		return encUTF16BE, true
	}
	return "", false
}

// NormalizeToUTF8 returns data as a UTF-8 string. Invalid byte sequences are
// replaced with U+FFFD rather than failing, so one malformed file cannot
// abort an indexing pass at the decode stage.
func NormalizeToUTF8(data []byte, detected EncodingResult) string {
	data = stripBOM(data, detected)

	switch detected.Encoding {
	case encUTF16LE:
		return decodeWithFallback(data, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())
	case encUTF16BE:
		return decodeWithFallback(data, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder())
	default:
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
}

func stripBOM(data []byte, detected EncodingResult) []byte {
	if !detected.HasBOM {
		return data
	}

	switch detected.Encoding {
	case encUTF8:
		if len(data) >= 3 {
			return data[3:]
		}
	case encUTF16LE, encUTF16BE:
		if len(data) >= 2 {
			return data[2:]
		}
	}
	return data
}

func decodeWithFallback(data []byte, decoder *encoding.Decoder) string {
	if len(data) == 0 {
		return ""
	}

	reader := transform.NewReader(bytes.NewReader(data), decoder)
	result, err := io.ReadAll(reader)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
	return string(bytes.ToValidUTF8(result, []byte("�")))
}

// ReadFileAsUTF8 reads path in full and normalizes its content to UTF-8.
func ReadFileAsUTF8(path string) (string, EncodingResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", EncodingResult{}, err
	}

	detected := DetectEncoding(data)
	return NormalizeToUTF8(data, detected), detected, nil
}
