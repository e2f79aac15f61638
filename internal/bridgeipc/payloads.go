package bridgeipc

import "encoding/json"

// IdentityPayload is the JSON body of a FrameIdentity frame: the client
// announces the device it wants the bridge to own.
type IdentityPayload struct {
	DeviceName   string `json:"device_name"`
	Manufacturer string `json:"manufacturer"`
}

// AckPayload is the JSON body of a FrameAck frame: the bridge's reply
// to Identity, reporting whether it created a new device or reused an
// existing one.
type AckPayload struct {
	Created    bool   `json:"created"`
	DeviceName string `json:"device_name"`
}

// StatusPayload is the JSON body of a FrameStatus frame: periodic
// bridge health info pushed to the client.
type StatusPayload struct {
	DeviceOpen    bool   `json:"device_open"`
	ConnectedSince int64 `json:"connected_since_unix_ms"`
}

func EncodeIdentity(p IdentityPayload) ([]byte, error) { return json.Marshal(p) }
func DecodeIdentity(b []byte) (IdentityPayload, error) {
	var p IdentityPayload
	err := json.Unmarshal(b, &p)
	return p, err
}

func EncodeAck(p AckPayload) ([]byte, error) { return json.Marshal(p) }
func DecodeAck(b []byte) (AckPayload, error) {
	var p AckPayload
	err := json.Unmarshal(b, &p)
	return p, err
}

func EncodeStatus(p StatusPayload) ([]byte, error) { return json.Marshal(p) }
func DecodeStatus(b []byte) (StatusPayload, error) {
	var p StatusPayload
	err := json.Unmarshal(b, &p)
	return p, err
}
