package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexString accepts a JSON string or number. Amount fields arrive both as
// 1500 and as "1.500,00" depending on the client.
type FlexString string

func (f FlexString) String() string {
	return string(f)
}

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*f = FlexString(raw)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	value, err := number.Float64()
	if err != nil {
		return err
	}
	*f = FlexString(strconv.FormatFloat(value, 'f', -1, 64))
	return nil
}
