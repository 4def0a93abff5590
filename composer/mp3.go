package composer

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

const (
	id3v2HeaderSize = 10
	id3v1TagSize    = 128
)

// appendClip copies the MPEG frames of an MP3 file to w, dropping any ID3v2
// header and ID3v1 trailer so concatenated clips play as one stream.
func appendClip(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read clip: %w", err)
	}
	if _, err := w.Write(stripID3(data)); err != nil {
		return fmt.Errorf("write clip %s: %w", path, err)
	}
	return nil
}

func stripID3(data []byte) []byte {
	if len(data) >= id3v2HeaderSize && bytes.HasPrefix(data, []byte("ID3")) {
		// Tag size is a 28-bit syncsafe integer.
		size := int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
		end := id3v2HeaderSize + size
		if data[5]&0x10 != 0 {
			end += id3v2HeaderSize
		}
		if end <= len(data) {
			data = data[end:]
		}
	}
	if len(data) >= id3v1TagSize && bytes.Equal(data[len(data)-id3v1TagSize:len(data)-id3v1TagSize+3], []byte("TAG")) {
		data = data[:len(data)-id3v1TagSize]
	}
	return data
}
