package bridge

import "encoding/base64"

// EncodeAddress reversibly encodes a listener address as a binary-safe
// token suitable for passing through argv (T1). Addresses may contain
// arbitrary bytes on some platforms (abstract unix sockets), so the
// encoding is base64 over the raw UTF-8 bytes rather than any
// address-family-specific escaping.
func EncodeAddress(address string) string {
	return base64.StdEncoding.EncodeToString([]byte(address))
}

// DecodeAddress inverts EncodeAddress.
func DecodeAddress(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
