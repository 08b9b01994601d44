package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// errTrailingJSON 文件結尾後仍有資料
var errTrailingJSON = errors.New("unexpected extra JSON data")

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return DecodeJSON(strings.NewReader(data), v)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return DecodeJSON(bytes.NewReader(data), v)
}

// DecodeJSON 解析單一 JSON 文件；數字保留為 json.Number，結尾不得有其他資料
func DecodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return errTrailingJSON
	}
	return nil
}
