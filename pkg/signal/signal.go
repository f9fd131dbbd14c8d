// Package signal encodes session descriptions for transport over the
// websocket handshake channel.
package signal

import (
	"encoding/base64"

	json "github.com/openviz/renderboard/pkg/json"
)

// Encode marshals obj to JSON and wraps it in base64.
func Encode(obj interface{}) (string, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode unwraps a base64 string and unmarshals the JSON into obj.
func Decode(in string, obj interface{}) error {
	b, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, obj)
}
